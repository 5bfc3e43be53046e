package reference_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/accounting/reference"
)

type product struct {
	id   string
	name string
}

func (p *product) LedgerIdentity() (string, string) { return "product", p.id }

type user struct{ id string }

func (u user) LedgerIdentity() (string, string) { return "user", u.id }

func productRegistry(t *testing.T, catalog map[string]*product) *reference.Registry {
	t.Helper()
	reg := reference.NewRegistry()
	err := reference.Register(reg, "product", func(_ context.Context, id string) (*product, error) {
		return catalog[id], nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestReferenceBasics(t *testing.T) {
	p := &product{id: "7", name: "Widget"}

	ref := reference.Of(p)
	if ref != reference.New("product", "7") {
		t.Errorf("Of: got %+v", ref)
	}
	if ref.String() != "product:7" {
		t.Errorf("String: got %q", ref.String())
	}
	if ref.IsZero() {
		t.Error("expected non-zero reference")
	}
	if ref.Ptr() == nil || *ref.Ptr() != ref {
		t.Error("Ptr should copy a non-zero reference")
	}

	var zero reference.Reference
	if !zero.IsZero() || zero.String() != "" || zero.Ptr() != nil {
		t.Error("zero reference misbehaves")
	}
}

func TestParse(t *testing.T) {
	ref, err := reference.Parse("order:eu:1001")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Type != "order" || ref.ID != "eu:1001" {
		t.Errorf("got %+v", ref)
	}

	for _, s := range []string{"", "product", ":7"} {
		if _, err := reference.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestIsSameEntity(t *testing.T) {
	p := &product{id: "7"}
	tests := []struct {
		name string
		ref  reference.Reference
		e    reference.Identifiable
		want bool
	}{
		{"same", reference.New("product", "7"), p, true},
		{"other id", reference.New("product", "8"), p, false},
		{"other type", reference.New("user", "7"), p, false},
		{"value type", reference.New("user", "7"), user{id: "7"}, true},
		{"nil interface", reference.New("product", "7"), nil, false},
		{"typed nil", reference.New("product", "7"), (*product)(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reference.IsSameEntity(tt.ref, tt.e); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	widget := &product{id: "7", name: "Widget"}
	reg := productRegistry(t, map[string]*product{"7": widget})
	ctx := context.Background()

	e, err := reg.Resolve(ctx, reference.New("product", "7"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if e != widget {
		t.Errorf("got %v, want %v", e, widget)
	}

	got, err := reference.ResolveAs[*product](ctx, reg, reference.New("product", "7"))
	if err != nil {
		t.Fatalf("ResolveAs: %v", err)
	}
	if got.name != "Widget" {
		t.Errorf("ResolveAs: got %q", got.name)
	}
}

func TestRegistryErrors(t *testing.T) {
	reg := productRegistry(t, map[string]*product{})
	ctx := context.Background()

	tests := []struct {
		name string
		ref  reference.Reference
		want error
	}{
		{"missing id", reference.New("product", "404"), reference.ErrNotFound},
		{"unknown type", reference.New("invoice", "1"), reference.ErrUnknownType},
		{"zero", reference.Reference{}, reference.ErrNotSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Resolve(ctx, tt.ref)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolverErrorsPassThrough(t *testing.T) {
	boom := errors.New("db down")
	reg := reference.NewRegistry()
	if err := reg.Register("product", reference.ResolverFunc(func(context.Context, string) (reference.Identifiable, error) {
		return nil, boom
	})); err != nil {
		t.Fatal(err)
	}

	_, err := reg.Resolve(context.Background(), reference.New("product", "7"))
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped %v", err, boom)
	}
	if errors.Is(err, reference.ErrNotFound) {
		t.Error("infrastructure errors must not look like not-found")
	}
}

func TestResolveAsWrongType(t *testing.T) {
	reg := reference.NewRegistry()
	reference.MustRegister(reg, "user", func(_ context.Context, id string) (user, error) {
		return user{id: id}, nil
	})

	if _, err := reference.ResolveAs[*product](context.Background(), reg, reference.New("user", "1")); err == nil {
		t.Error("expected type assertion error")
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := productRegistry(t, nil)

	if err := reg.Register("product", reference.ResolverFunc(nil)); err == nil {
		t.Error("expected duplicate registration error")
	}
	if err := reg.Register("", reference.ResolverFunc(nil)); err == nil {
		t.Error("expected empty tag error")
	}
	if err := reg.Register("user", nil); err == nil {
		t.Error("expected nil resolver error")
	}

	reference.MustRegister(reg, "user", func(_ context.Context, id string) (user, error) { return user{id: id}, nil })
	if got := reg.Types(); len(got) != 2 || got[0] != "product" || got[1] != "user" {
		t.Errorf("Types: got %v", got)
	}
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	dst := productRegistry(t, map[string]*product{"1": {id: "1", name: "kept"}})
	src := productRegistry(t, map[string]*product{"1": {id: "1", name: "shadowed"}})
	err := reference.Register(src, "user", func(_ context.Context, id string) (user, error) {
		return user{id: id}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := dst.Merge(src); err == nil {
		t.Error("Merge should report the duplicate product binding")
	}
	if got := dst.Types(); len(got) != 2 || got[0] != "product" || got[1] != "user" {
		t.Errorf("Types = %v, want [product user]", got)
	}

	p, err := reference.ResolveAs[*product](ctx, dst, reference.New("product", "1"))
	if err != nil {
		t.Fatal(err)
	}
	if p.name != "kept" {
		t.Errorf("product = %q, want the existing binding", p.name)
	}
	if err := dst.Merge(nil); err != nil {
		t.Errorf("Merge(nil) = %v", err)
	}
}
