package command

import (
	"fmt"
	"sort"
)

// Registry maps a command type tag to its handler. Fill it before the poller
// starts; it is only read afterwards, so lookups take no lock.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry { return &Registry{handlers: map[string]Handler{}} }

// Register panics on an empty name or a duplicate tag.
func (r *Registry) Register(name string, h Handler) {
	if name == "" || h == nil {
		panic("command: Register with empty name or nil handler")
	}
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("command: handler %q registered twice", name))
	}
	r.handlers[name] = h
}

func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
