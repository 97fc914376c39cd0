package fithttp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const fitRequestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["samples"],
  "properties": {
    "name": {"type": "string", "maxLength": 200},
    "samples": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["length", "power"],
        "properties": {
          "length": {"type": "number"},
          "power": {"type": "number"}
        }
      }
    }
  }
}`

func compileRequestSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fit_request.json", strings.NewReader(fitRequestSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("fit_request.json")
}

// validateRequest 先用 gjson 做廉价检查（合法性、样本数），再走 schema 校验。
func (r *Router) validateRequest(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return codeInvalidRequest, fmt.Errorf("request body is not valid JSON")
	}
	if n := gjson.GetBytes(raw, "samples.#").Int(); r.maxSamples > 0 && n > int64(r.maxSamples) {
		return codeTooManySamples, fmt.Errorf("too many samples: %d > %d", n, r.maxSamples)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return codeInvalidRequest, err
	}
	if err := r.schema.Validate(doc); err != nil {
		return codeInvalidRequest, fmt.Errorf("schema: %w", err)
	}
	return "", nil
}
