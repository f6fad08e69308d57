package fsm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

const schemaURL = "https://github.com/amp-labs/lifecycle/definition.schema.json"

//go:embed definition.schema.json
var definitionSchema []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) { //nolint:gochecknoglobals
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(definitionSchema))
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}

	return c.Compile(schemaURL)
})

// ValidateDefinition checks a definition document against the definition
// JSON Schema. Unlike LoadDefinitionFromBytes it rejects unknown keys, so a
// misspelled "initial_state" is reported instead of ignored.
func ValidateDefinition(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile definition schema: %w", err)
	}

	var doc any

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return configError(fmt.Errorf("failed to parse YAML: %w", err))
	}

	// Round trip through JSON so the validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return configError(fmt.Errorf("%w: %w", ErrMalformedTable, err))
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return configError(err)
	}

	if err := schema.Validate(instance); err != nil {
		return configError(fmt.Errorf("%w: %w", ErrMalformedTable, err))
	}

	return nil
}

// ValidateDefinitionFile is ValidateDefinition for a file.
func ValidateDefinitionFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return fmt.Errorf("failed to read definition file %q: %w", path, err)
	}

	return ValidateDefinition(data)
}
