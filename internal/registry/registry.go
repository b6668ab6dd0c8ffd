package registry

import (
	"sort"
	"sync"
)

// Registry maps model names to the provider that serves them. Aliases resolve
// to canonical model names before any lookup. Duplicate registration is last
// write wins.
type Registry struct {
	mu              sync.RWMutex
	modelToProvider map[string]string
	providerModels  map[string]map[string]struct{}
	aliases         map[string]string // alias -> canonical
}

func New() *Registry {
	r := &Registry{
		modelToProvider: make(map[string]string),
		providerModels:  make(map[string]map[string]struct{}),
		aliases:         make(map[string]string),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	openaiModels := []string{
		"gpt-4",
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4-turbo-preview",
		"gpt-4-32k",
		"gpt-4-32k-turbo",
		"gpt-3.5-turbo",
		"gpt-3.5-turbo-16k",
		"gpt-3.5-turbo-instruct",
	}
	anthropicModels := []string{
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
		"claude-3-5-sonnet-20241022",
		"claude-3-7-sonnet-20250219",
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
		"claude-3-5-haiku-20241022",
		"claude-3-5-sonnet-20240620",
	}
	geminiModels := []string{
		"gemini-pro",
		"gemini-pro-vision",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
		"gemini-1.5-pro-latest",
		"gemini-1.5-flash-latest",
	}
	mistralModels := []string{
		"mistral-large",
		"mistral-medium",
		"mistral-small",
		"mistral-7b-instruct",
	}
	cohereModels := []string{
		"command",
		"command-light",
		"command-nightly",
		"command-light-nightly",
	}

	for _, m := range openaiModels {
		r.Register(m, "openai")
	}
	for _, m := range anthropicModels {
		r.Register(m, "anthropic")
	}
	for _, m := range geminiModels {
		r.Register(m, "gemini")
	}
	for _, m := range mistralModels {
		r.Register(m, "mistral")
	}
	for _, m := range cohereModels {
		r.Register(m, "cohere")
	}

	// Short Anthropic names point at dated snapshots. claude-3-sonnet maps to
	// the newer 3.5 snapshot, matching upstream deprecations.
	anthropicAliases := map[string]string{
		"claude-3-opus":           "claude-3-opus-20240229",
		"claude-3-haiku":          "claude-3-haiku-20240307",
		"claude-3-sonnet":         "claude-3-5-sonnet-20241022",
		"claude-3-sonnet-20240229": "claude-3-5-sonnet-20241022",
	}
	for alias, canonical := range anthropicAliases {
		r.RegisterAlias(alias, canonical, "anthropic")
	}

	geminiAliases := map[string]string{
		"gemini":     "gemini-pro",
		"gemini-1.5": "gemini-1.5-pro",
	}
	for alias, canonical := range geminiAliases {
		r.RegisterAlias(alias, canonical, "gemini")
	}
}

// ResolveAlias returns the canonical model name for an alias, or the input
// unchanged when it is not an alias.
func (r *Registry) ResolveAlias(model string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[model]; ok {
		return canonical
	}
	return model
}

// Register binds a model to a provider. A model already owned by another
// provider moves to the new one.
func (r *Registry) Register(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if canonical, ok := r.aliases[model]; ok {
		model = canonical
	}

	if old, ok := r.modelToProvider[model]; ok && old != provider {
		delete(r.providerModels[old], model)
	}

	r.modelToProvider[model] = provider
	if r.providerModels[provider] == nil {
		r.providerModels[provider] = make(map[string]struct{})
	}
	r.providerModels[provider][model] = struct{}{}
}

// RegisterAlias registers an alias for a canonical model on a provider.
func (r *Registry) RegisterAlias(alias, canonical, provider string) {
	r.Register(canonical, provider)
	r.mu.Lock()
	r.aliases[alias] = canonical
	r.mu.Unlock()
}

// Provider returns the provider serving a model, resolving aliases first.
func (r *Registry) Provider(model string) (string, bool) {
	model = r.ResolveAlias(model)
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.modelToProvider[model]
	return provider, ok
}

func (r *Registry) IsSupported(model string) bool {
	_, ok := r.Provider(model)
	return ok
}

// ListModels returns all canonical model names plus aliases, sorted.
func (r *Registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]string, 0, len(r.modelToProvider)+len(r.aliases))
	for m := range r.modelToProvider {
		models = append(models, m)
	}
	for a := range r.aliases {
		models = append(models, a)
	}
	sort.Strings(models)
	return models
}

func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]string, 0, len(r.providerModels))
	for p := range r.providerModels {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// ModelsForProvider returns the canonical models served by a provider.
func (r *Registry) ModelsForProvider(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]string, 0, len(r.providerModels[provider]))
	for m := range r.providerModels[provider] {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// ProviderMap returns a copy of the model -> provider table including aliases.
func (r *Registry) ProviderMap() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.modelToProvider)+len(r.aliases))
	for m, p := range r.modelToProvider {
		out[m] = p
	}
	for a, canonical := range r.aliases {
		out[a] = r.modelToProvider[canonical]
	}
	return out
}

// Default is the registry instance used by the gateway.
var Default = New()
