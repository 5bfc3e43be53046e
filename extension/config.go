package extension

// Config holds the accounting extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.accounting" or "accounting" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DefaultCurrency is used by Init when the caller passes no currency
	// (default: "usd").
	DefaultCurrency string `json:"default_currency" mapstructure:"default_currency" yaml:"default_currency"`

	// StrictReferences rejects credits and debits whose reference type has
	// no registered resolver.
	StrictReferences bool `json:"strict_references" mapstructure:"strict_references" yaml:"strict_references"`

	// AuditOnStart runs AuditAll once the engine has started and logs any
	// divergent journals. Divergence never fails the start.
	AuditOnStart bool `json:"audit_on_start" mapstructure:"audit_on_start" yaml:"audit_on_start"`

	// AuditWorkers bounds how many journals AuditAll checks concurrently
	// (default: 4).
	AuditWorkers int `json:"audit_workers" mapstructure:"audit_workers" yaml:"audit_workers"`

	// GroveDriver names the grove driver to open when no store or grove.DB
	// was supplied programmatically: "pg", "sqlite" or "mongo".
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// GroveDSN is the connection string handed to GroveDriver.
	GroveDSN string `json:"grove_dsn" mapstructure:"grove_dsn" yaml:"grove_dsn"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultCurrency: "usd",
		AuditWorkers:    4,
	}
}
