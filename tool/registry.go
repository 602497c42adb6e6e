package tool

// Registry is a per-round lookup from tool name to Tool. The orchestration
// loop rebuilds it each round from whatever tool list is in effect (middleware
// may add or remove tools between rounds); rebuilding only re-indexes already
// constructed tools, no schema work happens here.
//
// Later registrations override earlier ones with the same name. Tools
// registered as additional are known to the embedding caller but not
// advertised to the model; calls naming them are deferred rather than
// executed.
type Registry struct {
	tools      map[string]Tool
	additional map[string]bool
	order      []string
}

// NewRegistry builds a registry from the advertised tool list.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools:      make(map[string]Tool, len(tools)),
		additional: make(map[string]bool),
	}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds an advertised tool, replacing any existing entry with the
// same name.
func (r *Registry) Register(t Tool) {
	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	delete(r.additional, name)
}

// RegisterAdditional adds a caller-supplied tool that is not advertised to
// the model. An advertised registration with the same name takes precedence.
func (r *Registry) RegisterAdditional(t Tool) {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return
	}
	r.order = append(r.order, name)
	r.tools[name] = t
	r.additional[name] = true
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// IsAdditional reports whether name resolves to a tool supplied only via the
// additional (non-advertised) list.
func (r *Registry) IsAdditional(name string) bool { return r.additional[name] }

// Tools returns all registered tools in first-registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }
