// Package reference implements typed pointers from ledger records to
// arbitrary host entities.
//
// A Reference is plain data: a type tag and an id. Turning it back into a
// live entity goes through a Registry of resolvers keyed by type tag, which
// the host fills in at startup:
//
//	reg := reference.NewRegistry()
//	reference.MustRegister(reg, "product", func(ctx context.Context, id string) (*Product, error) {
//	    return products.Find(ctx, id)
//	})
//
// Entities take part by implementing Identifiable. Nothing else is required
// of them.
package reference

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNotFound is returned when a resolver cannot locate the entity.
	ErrNotFound = errors.New("accounting: referenced entity not found")

	// ErrUnknownType is returned when no resolver is registered for a type tag.
	ErrUnknownType = errors.New("accounting: unknown reference type")

	// ErrNotSet is returned when resolving an empty Reference.
	ErrNotSet = errors.New("accounting: no reference set")
)

// Identifiable is implemented by any entity that can own a journal or be
// referenced from a transaction.
type Identifiable interface {
	// LedgerIdentity returns a stable type tag and id, such as
	// ("product", "7"). Both must be constant for the entity's lifetime.
	LedgerIdentity() (typeTag, id string)
}

// Reference identifies an external entity by type tag and id.
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// New creates a Reference.
func New(typeTag, id string) Reference {
	return Reference{Type: typeTag, ID: id}
}

// Of returns the Reference for an identifiable entity.
func Of(e Identifiable) Reference {
	t, id := e.LedgerIdentity()
	return Reference{Type: t, ID: id}
}

// IsZero reports whether r carries no type tag.
func (r Reference) IsZero() bool { return r.Type == "" }

// String formats r as "type:id".
func (r Reference) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Type + ":" + r.ID
}

// Ptr returns a pointer to r, or nil when r is zero. Stores use it for
// optional reference columns.
func (r Reference) Ptr() *Reference {
	if r.IsZero() {
		return nil
	}
	return &r
}

// Parse reads the "type:id" form produced by String. The id may itself
// contain colons.
func Parse(s string) (Reference, error) {
	t, id, ok := strings.Cut(s, ":")
	if !ok || t == "" {
		return Reference{}, fmt.Errorf("reference: expected \"type:id\", got %q", s)
	}
	return Reference{Type: t, ID: id}, nil
}

// IsSameEntity reports whether e is the entity r points at.
func IsSameEntity(r Reference, e Identifiable) bool {
	if isNil(e) {
		return false
	}
	t, id := e.LedgerIdentity()
	return r.Type == t && r.ID == id
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
