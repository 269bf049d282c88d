package formdef

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// entrySchemaJSON is the shape contract for a single form entry. Entries are
// checked against it before decoding so malformed documents are rejected at
// the resolver boundary instead of surfacing deep inside rendering.
const entrySchemaJSON = `{
  "type": "object",
  "required": ["targetPage", "template", "questions"],
  "properties": {
    "formPage": {"type": "string"},
    "title": {"type": "string"},
    "instructions": {"type": "string"},
    "targetPage": {"type": "string", "minLength": 1},
    "prepend": {"type": "boolean"},
    "editSummary": {"type": "string"},
    "preview": {"type": "string"},
    "template": {
      "oneOf": [
        {"type": "string", "minLength": 1},
        {
          "type": "object",
          "required": ["name"],
          "properties": {
            "name": {"type": "string", "minLength": 1},
            "subst": {"type": "boolean"}
          }
        }
      ]
    },
    "postSubmit": {
      "type": "object",
      "properties": {
        "page": {"type": "string"},
        "redirect": {"type": "string"},
        "message": {"type": "string"}
      }
    },
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string"},
          "label": {"type": "string"},
          "text": {"type": "string"},
          "html": {"type": "string"},
          "required": {"type": "boolean"},
          "options": {"type": "array", "items": {"type": "string"}},
          "default": {
            "oneOf": [
              {"type": "string"},
              {"type": "array", "items": {"type": "string"}}
            ]
          },
          "templateParam": {"type": "string"},
          "preview": {"type": "string"},
          "showIf": {
            "type": "object",
            "required": ["field"],
            "properties": {
              "field": {"type": "string", "minLength": 1},
              "equals": {"type": "string"},
              "anyOf": {"type": "array", "items": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`

var (
	entrySchemaOnce sync.Once
	entrySchema     *openapi3.Schema
	entrySchemaErr  error
)

func loadEntrySchema() (*openapi3.Schema, error) {
	entrySchemaOnce.Do(func() {
		schema := &openapi3.Schema{}
		if err := json.Unmarshal([]byte(entrySchemaJSON), schema); err != nil {
			entrySchemaErr = fmt.Errorf("formdef: load entry schema: %w", err)
			return
		}
		entrySchema = schema
	})
	return entrySchema, entrySchemaErr
}

// ValidateEntry checks a raw entry against the configuration schema.
func ValidateEntry(raw json.RawMessage) error {
	schema, err := loadEntrySchema()
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	if err := schema.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("entry does not match the configuration schema: %w", err)
	}
	return nil
}
