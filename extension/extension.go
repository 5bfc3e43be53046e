// Package extension provides the Forge extension adapter for accounting.
//
// It implements the forge.Extension interface to integrate the accounting
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.accounting" or
// "accounting" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/accounting"
	"github.com/xraph/accounting/store"
	"github.com/xraph/accounting/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "accounting"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Single-entry journals with cached balances and audit"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the accounting engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *accounting.Ledger
	store      store.Store
	groveDB    *grove.DB
	engineOpts []accounting.Option
}

// New creates a new accounting Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *accounting.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration, resolves
// the store, builds the engine and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.resolveStore(context.Background()); err != nil {
		return err
	}

	e.engine = accounting.New(e.store, e.buildEngineOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (store.Store, error) {
		return e.store, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*accounting.Ledger, error) {
		return e.engine, nil
	})
}

// resolveStore picks the store: an explicit WithStore, then a grove.DB
// from WithGroveDB or the grove_driver config, then the memory store.
func (e *Extension) resolveStore(ctx context.Context) error {
	if e.store != nil {
		return nil
	}

	if e.groveDB == nil && e.config.GroveDriver != "" {
		db, err := OpenGrove(ctx, e.config.GroveDriver, e.config.GroveDSN)
		if err != nil {
			return err
		}
		e.groveDB = db
	}

	if e.groveDB == nil {
		e.Logger().Warn("accounting: no store configured, using in-memory store")
		e.store = memory.New()
		return nil
	}

	s, err := StoreFor(e.groveDB)
	if err != nil {
		return err
	}
	e.Logger().Debug("accounting: using grove store",
		forge.F("driver", e.groveDB.Driver().Name()),
	)
	e.store = s
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("accounting: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if e.config.AuditOnStart {
		e.auditOnStart(ctx)
	}

	e.MarkStarted()
	return nil
}

func (e *Extension) auditOnStart(ctx context.Context) {
	divergent, err := e.engine.AuditAll(ctx)
	if err != nil {
		e.Logger().Warn("accounting: startup audit failed",
			forge.F("error", err.Error()),
		)
		return
	}
	for _, d := range divergent {
		e.Logger().Warn("accounting: journal balance diverges",
			forge.F("journal_id", d.JournalID.String()),
			forge.F("cached", d.Cached.String()),
			forge.F("recomputed", d.Recomputed.String()),
		)
	}
	e.Logger().Info("accounting: startup audit completed",
		forge.F("divergent", len(divergent)),
	)
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("accounting: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs accounting.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []accounting.Option {
	opts := make([]accounting.Option, 0, len(e.engineOpts)+4)

	if e.config.DisableMigrate {
		opts = append(opts, accounting.WithoutMigrate())
	}
	if e.config.DefaultCurrency != "" {
		opts = append(opts, accounting.WithDefaultCurrency(e.config.DefaultCurrency))
	}
	if e.config.StrictReferences {
		opts = append(opts, accounting.WithStrictReferences())
	}
	if e.config.AuditWorkers > 0 {
		opts = append(opts, accounting.WithAuditWorkers(e.config.AuditWorkers))
	}

	// Pass-through options go last so they win over config.
	return append(opts, e.engineOpts...)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("accounting: configuration is required but not found in config files; " +
				"ensure 'extensions.accounting' or 'accounting' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("accounting: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("default_currency", e.config.DefaultCurrency),
		forge.F("strict_references", e.config.StrictReferences),
		forge.F("audit_on_start", e.config.AuditOnStart),
		forge.F("audit_workers", e.config.AuditWorkers),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.accounting", "accounting"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("accounting: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("accounting: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	if cfg.AuditWorkers == 0 {
		cfg.AuditWorkers = defaults.AuditWorkers
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.StrictReferences {
		yamlConfig.StrictReferences = true
	}
	if programmaticConfig.AuditOnStart {
		yamlConfig.AuditOnStart = true
	}

	if yamlConfig.DefaultCurrency == "" {
		yamlConfig.DefaultCurrency = programmaticConfig.DefaultCurrency
	}
	if yamlConfig.AuditWorkers == 0 {
		yamlConfig.AuditWorkers = programmaticConfig.AuditWorkers
	}
	if yamlConfig.GroveDriver == "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
		yamlConfig.GroveDSN = programmaticConfig.GroveDSN
	}

	return mergeWithDefaults(yamlConfig)
}
