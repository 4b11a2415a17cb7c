package tools

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/M3tu20222/tarim/internal/glossary"
	"github.com/M3tu20222/tarim/internal/registry"
)

const concurrentWriteWarning = "\nwarning: the glossary file changed on disk during this update; " +
	"changes made by another writer may have been overwritten."

type GetDefinitionInput struct {
	Term string `json:"term" jsonschema_description:"Term to look up"`
}

type AddDefinitionInput struct {
	Term       string `json:"term" jsonschema:"minLength=1" jsonschema_description:"Term to define"`
	Definition string `json:"definition" jsonschema_description:"Definition of the term"`
}

type ListTermsInput struct{}

// Glossary exposes a glossary.Store as tools.
type Glossary struct {
	store glossary.Store
}

func NewGlossary(store glossary.Store) *Glossary {
	return &Glossary{store: store}
}

// GetDefinition returns the stored definition, or a not-found message.
func (g *Glossary) GetDefinition(ctx context.Context, in GetDefinitionInput) (registry.Result, error) {
	def, found, err := g.store.Get(ctx, in.Term)
	if err != nil {
		return registry.Result{}, err
	}
	if !found {
		return registry.Textf("'%s' not found in glossary.", in.Term), nil
	}
	return registry.Text(def), nil
}

func (g *Glossary) AddDefinition(ctx context.Context, in AddDefinitionInput) (registry.Result, error) {
	ack, err := g.store.Put(ctx, in.Term, in.Definition)
	if err != nil {
		return registry.Result{}, err
	}
	res := registry.Textf("'%s' added to glossary.", ack.Term)
	if ack.Replaced {
		res = registry.Textf("'%s' updated in glossary.", ack.Term)
	}
	if ack.Concurrent {
		res.Text += concurrentWriteWarning
	}
	return res, nil
}

// ListTerms returns every term, sorted, as a JSON array.
func (g *Glossary) ListTerms(ctx context.Context, _ ListTermsInput) (registry.Result, error) {
	keys, err := g.store.Keys(ctx)
	if err != nil {
		return registry.Result{}, err
	}
	if keys == nil {
		keys = []string{}
	}
	sort.Strings(keys)
	data, err := json.Marshal(keys)
	if err != nil {
		return registry.Result{}, err
	}
	return registry.Value(string(data), keys), nil
}
