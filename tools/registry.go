// PDF tool catalog.
//
// Information Hiding:
// - The set of PDF tools and their construction order live here only
// - Names are kept sorted at registration so listings never re-sort

package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// pdfTools builds every tool the server exposes, bound to one Env.
var pdfTools = []func(env *Env) Tool{
	func(env *Env) Tool { return NewExtractMetadataTool(env) },
	func(env *Env) Tool { return NewPageCountTool(env) },
	func(env *Env) Tool { return NewPageInfoTool(env) },
	func(env *Env) Tool { return NewOutlineTool(env) },
	func(env *Env) Tool { return NewAnnotationsTool(env) },
	func(env *Env) Tool { return NewLinksTool(env) },
	func(env *Env) Tool { return NewFormFieldsTool(env) },
	func(env *Env) Tool { return NewFillFormTool(env) },
	func(env *Env) Tool { return NewSelectPagesTool(env) },
	func(env *Env) Tool { return NewSplitTool(env) },
	func(env *Env) Tool { return NewMergeTool(env) },
	func(env *Env) Tool { return NewProtectTool(env) },
	func(env *Env) Tool { return NewUnprotectTool(env) },
	func(env *Env) Tool { return NewCompressTool(env) },
	func(env *Env) Tool { return NewListPDFsTool(env) },
	func(env *Env) Tool { return NewCacheStatsTool(env) },
}

// Registry is the name-indexed set of PDF tools served to MCP clients.
// It is filled once at startup and read concurrently by the dispatcher.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Tool
	names  []string // sorted
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// NewPDFRegistry registers every PDF tool bound to env.
func NewPDFRegistry(env *Env) (*Registry, error) {
	r := NewRegistry()
	for _, build := range pdfTools {
		if err := r.Register(build(env)); err != nil {
			return nil, fmt.Errorf("registering PDF tools: %w", err)
		}
	}
	return r, nil
}

// Register adds tools by their metadata name. Names must be non-empty and
// unique; on error no tool from the call is added.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		name := t.Metadata().Name
		switch {
		case name == "":
			return fmt.Errorf("tool has no name")
		case seen[name]:
			return fmt.Errorf("tool %q listed twice", name)
		}
		if _, dup := r.byName[name]; dup {
			return fmt.Errorf("tool %q already registered", name)
		}
		seen[name] = true
	}

	for _, t := range tools {
		name := t.Metadata().Name
		r.byName[name] = t
		i := sort.SearchStrings(r.names, name)
		r.names = append(r.names, "")
		copy(r.names[i+1:], r.names[i:])
		r.names[i] = name
	}
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// List returns tool metadata in name order.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolMetadata, len(r.names))
	for i, name := range r.names {
		out[i] = r.byName[name].Metadata()
	}
	return out
}

// Description renders the catalog as plain text, one block per tool, marking
// tools that write documents so operators can see which calls produce output.
func (r *Registry) Description() string {
	var b strings.Builder
	for i, meta := range r.List() {
		if i > 0 {
			b.WriteString("\n")
		}
		access := "read-only"
		if !meta.ReadOnly {
			access = "produces output"
		}
		fmt.Fprintf(&b, "Tool: %s (%s)\n  %s\n", meta.Name, access, meta.Description)
		for _, p := range meta.Parameters {
			need := ""
			if p.Required {
				need = ", required"
			}
			fmt.Fprintf(&b, "  - %s <%s%s>: %s\n", p.Name, p.ParamType, need, p.Description)
		}
	}
	return b.String()
}
