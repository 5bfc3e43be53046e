package extension

import (
	"github.com/xraph/grove"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/plugin"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/store"
)

// Option configures the accounting Forge extension.
type Option func(*Extension)

// WithStore sets the store for the accounting engine. It takes precedence
// over WithGroveDB and the grove_driver config.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the store from an open grove database. The backend
// (postgres, sqlite or mongo) follows the database's driver.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithAccountingOption passes an accounting.Option through to the engine.
func WithAccountingOption(opt accounting.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an accounting plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, accounting.WithPlugin(p))
	}
}

// WithResolver registers a reference resolver for typeTag.
func WithResolver(typeTag string, r reference.Resolver) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, accounting.WithResolver(typeTag, r))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDefaultCurrency sets the currency Init falls back to.
func WithDefaultCurrency(code string) Option {
	return func(e *Extension) { e.config.DefaultCurrency = code }
}

// WithStrictReferences rejects references to unregistered types.
func WithStrictReferences() Option {
	return func(e *Extension) { e.config.StrictReferences = true }
}

// WithAuditOnStart audits every journal after start.
func WithAuditOnStart() Option {
	return func(e *Extension) { e.config.AuditOnStart = true }
}

// WithGroveDriver opens a grove database with the named driver and dsn
// when no store or grove.DB is supplied.
func WithGroveDriver(driver, dsn string) Option {
	return func(e *Extension) {
		e.config.GroveDriver = driver
		e.config.GroveDSN = dsn
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
