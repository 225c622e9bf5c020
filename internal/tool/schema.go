package tool

import (
	"encoding/json"
	"fmt"
)

// Property describes one parameter in a tool's input schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Schema is the declared input schema of a tool: a JSON-Schema-shaped object
// mapping parameter names to property descriptors.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// NewSchema creates an object schema with the given properties and required
// parameter names.
func NewSchema(props map[string]Property, required ...string) Schema {
	return Schema{Type: "object", Properties: props, Required: required}
}

// Definition is a tool's exported capability descriptor, suitable for
// embedding in an LLM tool-calling request or serving to a remote caller.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"input_schema"`
}

// Define builds the Definition for a tool from its declared contract.
func Define(t Tool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}

// ValidateInput checks JSON-encoded arguments against the schema: every
// required parameter must be present, and present parameters must match
// their declared primitive type and enum constraint. The returned error is
// meant to surface as a tool-result failure, not a task failure.
func (s Schema) ValidateInput(args json.RawMessage) error {
	input := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	for _, name := range s.Required {
		if _, ok := input[name]; !ok {
			return fmt.Errorf("%w: missing required parameter %q", ErrInvalidInput, name)
		}
	}

	for name, value := range input {
		prop, ok := s.Properties[name]
		if !ok {
			// Unknown parameters are tolerated; the tool decides what to do.
			continue
		}
		if err := checkType(name, prop, value); err != nil {
			return err
		}
	}

	return nil
}

// checkType validates a single parameter value against its property.
func checkType(name string, prop Property, value any) error {
	switch prop.Type {
	case "string":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: parameter %q must be a string", ErrInvalidInput, name)
		}
		if len(prop.Enum) > 0 && !inEnum(prop.Enum, str) {
			return fmt.Errorf("%w: parameter %q must be one of %v", ErrInvalidInput, name, prop.Enum)
		}
	case "number", "integer":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%w: parameter %q must be a number", ErrInvalidInput, name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: parameter %q must be a boolean", ErrInvalidInput, name)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("%w: parameter %q must be an array", ErrInvalidInput, name)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("%w: parameter %q must be an object", ErrInvalidInput, name)
		}
	}
	return nil
}

func inEnum(enum []string, value string) bool {
	for _, candidate := range enum {
		if candidate == value {
			return true
		}
	}
	return false
}
