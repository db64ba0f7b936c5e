package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedReply is returned when the model's JSON does not have the
// expected shape.
var ErrMalformedReply = errors.New("malformed model reply")

const postingSchema = `{
  "type": "object",
  "properties": {
    "company":      {"type": ["string", "null"]},
    "role":         {"type": ["string", "null"]},
    "location":     {"type": ["string", "null"]},
    "salary":       {"type": ["string", "null"]},
    "summary":      {"type": ["string", "null"]},
    "requirements": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

const profileSchema = `{
  "type": "object",
  "properties": {
    "name":     {"type": ["string", "null"]},
    "headline": {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]},
    "summary":  {"type": ["string", "null"]},
    "experience": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "title":   {"type": ["string", "null"]},
          "company": {"type": ["string", "null"]},
          "period":  {"type": ["string", "null"]}
        }
      }
    },
    "skills": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var (
	postingSchemaOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema("posting.json", postingSchema)
	})
	profileSchemaOnce = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema("profile.json", profileSchema)
	})
)

func compileSchema(name, src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// checkShape validates a raw JSON reply against schema.
func checkShape(schema func() (*jsonschema.Schema, error), raw []byte) error {
	compiled, err := schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedReply, schemaIssues(err))
	}
	return nil
}

// schemaIssues flattens a validation error into "location: message" pairs.
func schemaIssues(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			loc := node.InstanceLocation
			if loc == "" {
				loc = "#"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", loc, node.Message))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return strings.Join(parts, "; ")
}
