package tools

import (
	"context"

	"github.com/M3tu20222/tarim/internal/registry"
)

type HelloInput struct {
	Name string `json:"name,omitempty" jsonschema:"default=World" jsonschema_description:"Who to greet"`
}

// Hello greets name, defaulting to World.
func Hello(ctx context.Context, in HelloInput) (registry.Result, error) {
	return registry.Textf("Hello, %s!", in.Name), nil
}

type HelloWorldInput struct {
	Name string `json:"name" jsonschema:"minLength=1" jsonschema_description:"Name to greet"`
}

func HelloWorld(ctx context.Context, in HelloWorldInput) (registry.Result, error) {
	return registry.Textf("Hello, %s!", in.Name), nil
}
