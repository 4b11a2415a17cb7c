package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// inputSchema is the published and compiled form of a tool's argument struct.
type inputSchema struct {
	raw      json.RawMessage
	defaults map[string]any
	compiled *validator.Schema
}

// reflectSchema derives the JSON Schema of In from its struct tags. Fields
// without omitempty are required; `jsonschema:"default=..."` declares defaults.
func reflectSchema[In any](name string) (*inputSchema, error) {
	r := jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	var in In
	s := r.Reflect(in)
	s.Version = ""

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema for %q: %w", name, err)
	}

	var props struct {
		Type       string `json:"type"`
		Properties map[string]struct {
			Default json.RawMessage `json:"default"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("reading schema for %q: %w", name, err)
	}
	if props.Type != "object" {
		return nil, fmt.Errorf("tool %q: arguments must be a struct, schema type is %q", name, props.Type)
	}
	defaults := make(map[string]any)
	for key, p := range props.Properties {
		if len(p.Default) == 0 {
			continue
		}
		var v any
		if err := decodeJSON(p.Default, &v); err != nil {
			return nil, fmt.Errorf("tool %q: default for %q: %w", name, key, err)
		}
		defaults[key] = v
	}

	c := validator.NewCompiler()
	c.Draft = validator.Draft2020
	url := name + ".json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("adding schema for %q: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %q: %w", name, err)
	}

	return &inputSchema{raw: raw, defaults: defaults, compiled: compiled}, nil
}

// prepare decodes raw arguments into a map, fills defaults and validates.
func (s *inputSchema) prepare(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := decodeJSON(trimmed, &args); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
	}
	for key, v := range s.defaults {
		if _, ok := args[key]; !ok {
			args[key] = v
		}
	}
	if err := s.compiled.Validate(args); err != nil {
		return nil, describeValidation(err)
	}
	return args, nil
}

// decodeJSON decodes a single JSON value, keeping numbers as json.Number so
// integers beyond 2^53 survive the round trip into the typed arguments.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// describeValidation flattens a schema validation error into its leaf causes.
func describeValidation(err error) error {
	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	var msgs []string
	collectCauses(ve, &msgs)
	if len(msgs) == 0 {
		return err
	}
	return errors.New(strings.Join(msgs, "; "))
}

func collectCauses(ve *validator.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectCauses(c, msgs)
	}
}
