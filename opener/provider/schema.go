package provider

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into the strict schema dialect that OpenAI
// structured outputs require: every object closed, every property required,
// no $ref indirection.
func GenerateSchema[T any]() (map[string]any, error) {
	r := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var zero T
	b, err := json.Marshal(r.Reflect(zero))
	if err != nil {
		return nil, fmt.Errorf("GenerateSchema: marshal %T: %w", zero, err)
	}
	var root map[string]any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("GenerateSchema: decode %T: %w", zero, err)
	}
	strictify(root)
	return root, nil
}

// strictify walks every subschema reachable through properties, items,
// additionalProperties or a combinator and closes the objects it finds.
// The required list is sorted so the same type always yields the same schema.
func strictify(node map[string]any) {
	props, _ := node["properties"].(map[string]any)
	if node["type"] == "object" {
		node["additionalProperties"] = false
		if len(props) > 0 {
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			node["required"] = names
		}
	}

	var children []any
	for _, p := range props {
		children = append(children, p)
	}
	children = append(children, node["items"], node["additionalProperties"])
	for _, key := range []string{"anyOf", "oneOf", "allOf"} {
		if list, ok := node[key].([]any); ok {
			children = append(children, list...)
		}
	}
	for _, c := range children {
		if sub, ok := c.(map[string]any); ok {
			strictify(sub)
		}
	}
}
