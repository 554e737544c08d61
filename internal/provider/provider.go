package provider

import "sort"

// Provider describes a hosted service that can run some of the pipeline's
// remote operations.
type Provider interface {
	Name() string
	RequiresAPIKey() bool
	ValidateAPIKey(key string) bool
	// BaseURL is the API root the adapters talk to.
	BaseURL() string
	Models() []Model
	DefaultModel(c Capability) string
}

var registry = make(map[string]Provider)

func init() {
	Register(&OpenAIProvider{})
	Register(&GroqProvider{})
	Register(&GeminiProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns all registered provider names, sorted.
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListProvidersWith returns the sorted names of providers that have at least
// one model with capability c.
func ListProvidersWith(c Capability) []string {
	var names []string
	for name, p := range registry {
		if len(ModelsWith(p, c)) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Supports reports whether the named provider can serve capability c.
func Supports(name string, c Capability) bool {
	p := GetProvider(name)
	return p != nil && len(ModelsWith(p, c)) > 0
}
