package ai

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Structural schemas for model output. Validation happens before the decode
// step in normalize.go: the schema rejects grossly malformed payloads while
// the decode step coerces the loosely typed leaves.

const actionPlanSchemaJSON = `{
  "type": "object",
  "properties": {
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["action_type"]
      }
    }
  },
  "required": ["actions"]
}`

const toneSchemaJSON = `{
  "type": "object",
  "properties": {
    "sentiment": {},
    "confidence": {},
    "tone_summary": {}
  },
  "required": ["sentiment", "tone_summary"]
}`

const coachingSchemaJSON = `{
  "type": "object",
  "properties": {
    "suggestions": {
      "type": "array",
      "items": {"type": "object"}
    }
  },
  "required": ["suggestions"]
}`

var (
	actionPlanSchema = mustCompileSchema("actions.json", actionPlanSchemaJSON)
	toneSchema       = mustCompileSchema("tone.json", toneSchemaJSON)
	coachingSchema   = mustCompileSchema("coaching.json", coachingSchemaJSON)
)

func mustCompileSchema(name, source string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}
