package graphsummarizer

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the graph-summarizer processor with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     NewComponent,
		Schema:      graphSummarizerSchema,
		Type:        "processor",
		Protocol:    "rdf",
		Domain:      "graph",
		Description: "Summarizes windows of graph entities into pattern graphs",
		Version:     "0.1.0",
	})
}
