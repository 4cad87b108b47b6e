package tool

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/alphadose/haxmap"
)

// Registry is the process-wide tool table. Register during startup, then
// Freeze; a frozen registry rejects further registration and is safe for
// lock-free concurrent reads.
type Registry struct {
	tools  *haxmap.Map[string, Descriptor]
	frozen atomic.Bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: haxmap.New[string, Descriptor]()}
}

// Register adds a descriptor. Names must be unique within the process.
func (r *Registry) Register(d Descriptor) error {
	if r.frozen.Load() {
		return fmt.Errorf("registry is frozen; cannot register %q", d.Name)
	}
	if d.Name == "" {
		return fmt.Errorf("tool descriptor needs a name")
	}
	if !d.Passthrough && d.Handler == nil {
		return fmt.Errorf("tool %q has no handler and is not passthrough", d.Name)
	}
	if _, exists := r.tools.Get(d.Name); exists {
		return fmt.Errorf("duplicate tool name %q", d.Name)
	}
	r.tools.Set(d.Name, d)
	return nil
}

// MustRegister panics on registration error. Startup-time use only.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Freeze marks the registry read-only.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Get resolves a descriptor by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	return r.tools.Get(name)
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.tools.Len())
	r.tools.ForEach(func(name string, _ Descriptor) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// Descriptors returns all descriptors in name order.
func (r *Registry) Descriptors() []Descriptor {
	names := r.Names()
	out := make([]Descriptor, 0, len(names))
	for _, n := range names {
		d, _ := r.tools.Get(n)
		out = append(out, d)
	}
	return out
}

// FeatureFlags returns the sorted set of distinct feature flags declared by
// registered tools.
func (r *Registry) FeatureFlags() []string {
	seen := map[string]struct{}{}
	r.tools.ForEach(func(_ string, d Descriptor) bool {
		if d.FeatureFlag != "" {
			seen[d.FeatureFlag] = struct{}{}
		}
		return true
	})
	flags := make([]string, 0, len(seen))
	for f := range seen {
		flags = append(flags, f)
	}
	slices.Sort(flags)
	return flags
}
