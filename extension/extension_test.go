package extension

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xraph/accounting/store/sqlite"
)

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name       string
		yaml, prog Config
		want       Config
	}{
		{
			name: "defaults fill gaps",
			want: Config{DefaultCurrency: "usd", AuditWorkers: 4},
		},
		{
			name: "yaml wins over programmatic values",
			yaml: Config{DefaultCurrency: "eur", AuditWorkers: 2, GroveDriver: "pg", GroveDSN: "postgres://a"},
			prog: Config{DefaultCurrency: "gbp", AuditWorkers: 8, GroveDriver: "sqlite", GroveDSN: "b.db"},
			want: Config{DefaultCurrency: "eur", AuditWorkers: 2, GroveDriver: "pg", GroveDSN: "postgres://a"},
		},
		{
			name: "programmatic fills what yaml omits",
			prog: Config{DefaultCurrency: "gbp", GroveDriver: "sqlite", GroveDSN: "b.db"},
			want: Config{DefaultCurrency: "gbp", AuditWorkers: 4, GroveDriver: "sqlite", GroveDSN: "b.db"},
		},
		{
			name: "programmatic flags are sticky",
			prog: Config{DisableMigrate: true, StrictReferences: true, AuditOnStart: true},
			want: Config{DisableMigrate: true, StrictReferences: true, AuditOnStart: true, DefaultCurrency: "usd", AuditWorkers: 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeConfigurations(tt.yaml, tt.prog); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildEngineOpts(t *testing.T) {
	e := New(WithDisableMigrate(), WithStrictReferences(), WithDefaultCurrency("eur"))
	e.config = mergeWithDefaults(e.config)
	// migrate, currency, strict references, audit workers
	if got := len(e.buildEngineOpts()); got != 4 {
		t.Errorf("got %d options, want 4", got)
	}
}

func TestStoreFor(t *testing.T) {
	ctx := context.Background()
	db, err := OpenGrove(ctx, "sqlite", filepath.Join(t.TempDir(), "accounting.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s, err := StoreFor(db)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*sqlite.Store); !ok {
		t.Errorf("StoreFor(sqlite) = %T", s)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestOpenGroveUnknownDriver(t *testing.T) {
	if _, err := OpenGrove(context.Background(), "oracle", ""); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}
