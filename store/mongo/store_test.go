package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/accounting/store"
	"github.com/xraph/accounting/store/mongo"
	"github.com/xraph/accounting/store/storetest"
)

// Set ACCOUNTING_MONGO_URI to a replica set URI that names a scratch
// database, e.g. mongodb://localhost:27017/accounting_test?replicaSet=rs0.
// Each test drops the database first.
func newStore(t *testing.T) store.Store {
	t.Helper()
	uri := os.Getenv("ACCOUNTING_MONGO_URI")
	if uri == "" {
		t.Skip("ACCOUNTING_MONGO_URI not set")
	}
	ctx := context.Background()

	drv := mongodriver.New()
	if err := drv.Open(ctx, uri); err != nil {
		t.Fatal(err)
	}
	if err := drv.Database().Drop(ctx); err != nil {
		t.Fatal(err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatal(err)
	}

	s := mongo.New(db)
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newStore, storetest.Options{Writers: 4, PerWriter: 10})
}
