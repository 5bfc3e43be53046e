package reference

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Resolver looks up a live entity of one type by id.
//
// Implementations return an error matching ErrNotFound, or a nil entity,
// when the id does not exist. Any other error is passed through to the
// caller unchanged apart from wrapping.
type Resolver interface {
	Resolve(ctx context.Context, id string) (Identifiable, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, id string) (Identifiable, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, id string) (Identifiable, error) {
	return f(ctx, id)
}

// Registry maps type tags to resolvers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// Register binds a resolver to typeTag. A tag can be bound once.
func (r *Registry) Register(typeTag string, res Resolver) error {
	if typeTag == "" {
		return errors.New("reference: empty type tag")
	}
	if res == nil {
		return fmt.Errorf("reference: nil resolver for %q", typeTag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resolvers[typeTag]; exists {
		return fmt.Errorf("reference: duplicate registration: %s", typeTag)
	}
	r.resolvers[typeTag] = res
	return nil
}

// Merge copies every binding of from into r. Tags already bound in r keep
// their resolver and are reported in the returned error.
func (r *Registry) Merge(from *Registry) error {
	if from == nil || from == r {
		return nil
	}
	from.mu.RLock()
	bindings := make(map[string]Resolver, len(from.resolvers))
	for t, res := range from.resolvers {
		bindings[t] = res
	}
	from.mu.RUnlock()

	var errs []error
	for _, t := range sortedKeys(bindings) {
		if err := r.Register(t, bindings[t]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.resolvers)
}

func sortedKeys(m map[string]Resolver) []string {
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the entity ref points at.
//
// It fails with ErrNotSet for a zero Reference, ErrUnknownType when no
// resolver is registered for ref.Type and ErrNotFound when the resolver
// cannot locate the id.
func (r *Registry) Resolve(ctx context.Context, ref Reference) (Identifiable, error) {
	if ref.IsZero() {
		return nil, ErrNotSet
	}

	r.mu.RLock()
	res, ok := r.resolvers[ref.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, ref.Type)
	}

	e, err := res.Resolve(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	if isNil(e) {
		return nil, fmt.Errorf("resolve %s: %w", ref, ErrNotFound)
	}
	return e, nil
}

// Register binds a typed lookup function to typeTag. A nil result from fn
// counts as not found, including a typed nil pointer.
func Register[T Identifiable](r *Registry, typeTag string, fn func(ctx context.Context, id string) (T, error)) error {
	return r.Register(typeTag, ResolverFunc(func(ctx context.Context, id string) (Identifiable, error) {
		v, err := fn(ctx, id)
		if err != nil {
			return nil, err
		}
		if isNil(v) {
			return nil, nil
		}
		return v, nil
	}))
}

// MustRegister is like Register but panics on error.
func MustRegister[T Identifiable](r *Registry, typeTag string, fn func(ctx context.Context, id string) (T, error)) {
	if err := Register(r, typeTag, fn); err != nil {
		panic(err)
	}
}

// ResolveAs resolves ref and asserts the entity's concrete type.
func ResolveAs[T Identifiable](ctx context.Context, r *Registry, ref Reference) (T, error) {
	var zero T
	e, err := r.Resolve(ctx, ref)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("resolve %s: got %T, want %T", ref, e, zero)
	}
	return v, nil
}
