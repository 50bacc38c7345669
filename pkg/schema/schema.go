// Package schema generates JSON schemas from Go types and validates decoded
// documents against them.
package schema

import (
	"encoding/json"
	"sort"

	invopop "github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonschema"
	"github.com/pkg/errors"
)

// Generate reflects the JSON schema of T with inline definitions and no
// additional properties.
func Generate[T any]() *invopop.Schema {
	reflector := invopop.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Compiled pairs a schema document with its compiled validator.
type Compiled struct {
	JSON   []byte
	schema *jsonschema.Schema
}

// Compile marshals a reflected schema and compiles it for validation.
func Compile(s *invopop.Schema) (*Compiled, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal schema")
	}
	compiled, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile schema")
	}
	return &Compiled{JSON: data, schema: compiled}, nil
}

// For generates and compiles the schema of T.
func For[T any]() (*Compiled, error) {
	return Compile(Generate[T]())
}

// Validate checks a decoded document and returns one message per failing
// keyword, or nil when the document conforms.
func (c *Compiled) Validate(doc any) []string {
	normalized, err := toJSONValue(doc)
	if err != nil {
		return []string{err.Error()}
	}

	result := c.schema.Validate(normalized)
	if result.IsValid() {
		return nil
	}

	var messages []string
	for _, k := range sortedKeys(result.Errors) {
		messages = append(messages, result.Errors[k].Message)
	}
	for _, detail := range result.Details {
		messages = append(messages, detailMessages(detail)...)
	}
	return messages
}

func detailMessages(r *jsonschema.EvaluationResult) []string {
	if r == nil || r.Valid {
		return nil
	}
	loc := r.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	var out []string
	for _, k := range sortedKeys(r.Errors) {
		out = append(out, loc+": "+r.Errors[k].Message)
	}
	for _, d := range r.Details {
		out = append(out, detailMessages(d)...)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toJSONValue converts decoded YAML into the shapes encoding/json produces
// so type checks see numbers and objects uniformly.
func toJSONValue(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "document is not representable as JSON")
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "document is not representable as JSON")
	}
	return out, nil
}
