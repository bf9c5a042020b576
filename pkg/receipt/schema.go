package receipt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ContextSchemaRegistry holds a compiled JSON Schema per component, used to
// validate the free-form Context sidecar before a receipt is accepted.
// Components with no registered schema are left unchecked.
type ContextSchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewContextSchemaRegistry returns an empty registry.
func NewContextSchemaRegistry() *ContextSchemaRegistry {
	return &ContextSchemaRegistry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaJSON (a Draft 2020-12 JSON Schema document) and
// binds it to component. An empty schemaJSON removes any existing schema.
func (reg *ContextSchemaRegistry) Register(component, schemaJSON string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if schemaJSON == "" {
		delete(reg.schemas, component)
		return nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://covenant.local/schemas/%s.json", component)
	if err := c.AddResource(url, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("receipt: registering schema for %q: %w", component, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("receipt: compiling schema for %q: %w", component, err)
	}
	reg.schemas[component] = compiled
	return nil
}

// Validate checks r.Context against the schema registered for r.Component,
// if any. A component with no registered schema always passes.
func (reg *ContextSchemaRegistry) Validate(r Receipt) error {
	reg.mu.RLock()
	schema, ok := reg.schemas[r.Component]
	reg.mu.RUnlock()
	if !ok {
		return nil
	}

	ctx := r.Context
	if ctx == nil {
		ctx = map[string]interface{}{}
	}
	if err := schema.Validate(ctx); err != nil {
		return fmt.Errorf("receipt: context does not satisfy %s schema: %w", r.Component, err)
	}
	return nil
}
