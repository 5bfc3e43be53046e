package extension

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/accounting/store"
	"github.com/xraph/accounting/store/mongo"
	"github.com/xraph/accounting/store/postgres"
	"github.com/xraph/accounting/store/sqlite"
)

// OpenGrove opens a grove database with the named driver: "pg" (or
// "postgres"), "sqlite" or "mongo".
func OpenGrove(ctx context.Context, driver, dsn string) (*grove.DB, error) {
	var drv grove.GroveDriver
	switch driver {
	case "pg", "postgres":
		pg := pgdriver.New()
		if err := pg.Open(ctx, dsn); err != nil {
			return nil, fmt.Errorf("accounting: open postgres: %w", err)
		}
		drv = pg
	case "sqlite":
		sq := sqlitedriver.New()
		if err := sq.Open(ctx, dsn); err != nil {
			return nil, fmt.Errorf("accounting: open sqlite: %w", err)
		}
		drv = sq
	case "mongo", "mongodb":
		mg := mongodriver.New()
		if err := mg.Open(ctx, dsn); err != nil {
			return nil, fmt.Errorf("accounting: open mongo: %w", err)
		}
		drv = mg
	default:
		return nil, fmt.Errorf("accounting: unsupported grove driver %q", driver)
	}
	return grove.Open(drv)
}

// StoreFor returns the store backend matching db's driver.
func StoreFor(db *grove.DB) (store.Store, error) {
	switch name := db.Driver().Name(); name {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("accounting: no store for grove driver %q", name)
	}
}
