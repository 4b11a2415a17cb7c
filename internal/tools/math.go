package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/M3tu20222/tarim/internal/registry"
)

type AddNumbersInput struct {
	A int64 `json:"a" jsonschema_description:"First addend"`
	B int64 `json:"b" jsonschema_description:"Second addend"`
}

// AddNumbers returns a+b, or an error result when the sum does not fit in
// an int64.
func AddNumbers(ctx context.Context, in AddNumbersInput) (registry.Result, error) {
	sum := in.A + in.B
	if (in.B > 0 && sum < in.A) || (in.B < 0 && sum > in.A) {
		return registry.Failure(fmt.Sprintf("Error: %d + %d overflows a 64-bit integer.", in.A, in.B)), nil
	}
	return registry.Value(strconv.FormatInt(sum, 10), sum), nil
}
