// Package codeskills is the compiled-in registry of code skills: skills whose
// work is done by a Go function rather than an LLM call. Membership in this
// registry is what makes a skill directory executable; nothing on disk can
// add an entry.
package codeskills

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// ErrNotImplemented is returned for names with no registered entry.
var ErrNotImplemented = errors.New("code skill not implemented")

// InputKey is the argument name the skill input text is bound to.
const InputKey = "input"

// Entry is one registered code skill.
type Entry struct {
	Name        string
	Description string
	// Shape documents the accepted arguments as "name type" pairs.
	Shape []string

	newArgs func() any
	run     func(ctx context.Context, args any) (any, error)
}

// NewEntry builds an entry whose arguments are decoded into A. A must be a
// struct with mapstructure tags and an `input` field for the input text.
func NewEntry[A any](name, description string, run func(ctx context.Context, args *A) (any, error)) *Entry {
	var zero A
	return &Entry{
		Name:        name,
		Description: description,
		Shape:       describeShape(reflect.TypeOf(zero)),
		newArgs:     func() any { return new(A) },
		run: func(ctx context.Context, args any) (any, error) {
			return run(ctx, args.(*A))
		},
	}
}

// Invoke marshals input and options into the entry's argument shape and runs it.
func (e *Entry) Invoke(ctx context.Context, input string, options map[string]any) (any, error) {
	raw := make(map[string]any, len(options)+1)
	for k, v := range options {
		raw[k] = v
	}
	raw[InputKey] = input

	args := e.newArgs()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           args,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create argument decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrapf(err, "invalid arguments for code skill '%s' (accepted: %s)", e.Name, strings.Join(e.Shape, ", "))
	}

	return e.run(ctx, args)
}

func describeShape(t reflect.Type) []string {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	shape := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		shape = append(shape, name+" "+f.Type.String())
	}
	return shape
}

// Registry maps skill names to entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates a registry holding the given entries.
func NewRegistry(entries ...*Entry) *Registry {
	r := &Registry{entries: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		r.entries[e.Name] = e
	}
	return r
}

// Register adds or replaces an entry. This is the extension point for
// programs that embed skillet and ship their own code skills.
func (r *Registry) Register(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Name] = e
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named entry, or returns ErrNotImplemented.
func (r *Registry) Invoke(ctx context.Context, name, input string, options map[string]any) (any, error) {
	e, ok := r.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotImplemented, "'%s'", name)
	}
	return e.Invoke(ctx, input, options)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry with the built-in code skills.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(
			WebScraperEntry(),
			VaultWriterEntry(),
			TextStatsEntry(),
		)
	})
	return defaultRegistry
}
