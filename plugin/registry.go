package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry holds registered plugins, with one cached slice per hook so
// emission never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onJournalCreated      []OnJournalCreated
	onTransactionRecorded []OnTransactionRecorded
	onBalanceDivergence   []OnBalanceDivergence
	onBalanceRepaired     []OnBalanceRepaired
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook time limit.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin and caches the hooks it implements.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnJournalCreated); ok {
		r.onJournalCreated = append(r.onJournalCreated, v)
		hooks = append(hooks, "OnJournalCreated")
	}
	if v, ok := p.(OnTransactionRecorded); ok {
		r.onTransactionRecorded = append(r.onTransactionRecorded, v)
		hooks = append(hooks, "OnTransactionRecorded")
	}
	if v, ok := p.(OnBalanceDivergence); ok {
		r.onBalanceDivergence = append(r.onBalanceDivergence, v)
		hooks = append(hooks, "OnBalanceDivergence")
	}
	if v, ok := p.(OnBalanceRepaired); ok {
		r.onBalanceRepaired = append(r.onBalanceRepaired, v)
		hooks = append(hooks, "OnBalanceRepaired")
	}

	r.logger.Debug("plugin registered",
		"plugin", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns the plugin registered under name, or nil.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, l)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitJournalCreated notifies plugins of a new journal.
func (r *Registry) EmitJournalCreated(ctx context.Context, j *journal.Journal) {
	r.mu.RLock()
	plugins := r.onJournalCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnJournalCreated", func() error {
			return p.OnJournalCreated(ctx, j)
		})
	}
}

// EmitTransactionRecorded notifies plugins of a committed credit or debit.
func (r *Registry) EmitTransactionRecorded(ctx context.Context, j *journal.Journal, t *transaction.Transaction) {
	r.mu.RLock()
	plugins := r.onTransactionRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnTransactionRecorded", func() error {
			return p.OnTransactionRecorded(ctx, j, t)
		})
	}
}

// EmitBalanceDivergence notifies plugins of a failed audit.
func (r *Registry) EmitBalanceDivergence(ctx context.Context, j *journal.Journal, recomputed types.Money) {
	r.mu.RLock()
	plugins := r.onBalanceDivergence
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnBalanceDivergence", func() error {
			return p.OnBalanceDivergence(ctx, j, recomputed)
		})
	}
}

// EmitBalanceRepaired notifies plugins that a cached balance was corrected.
func (r *Registry) EmitBalanceRepaired(ctx context.Context, j *journal.Journal, previous types.Money) {
	r.mu.RLock()
	plugins := r.onBalanceRepaired
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnBalanceRepaired", func() error {
			return p.OnBalanceRepaired(ctx, j, previous)
		})
	}
}

func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin hook failed",
			"plugin", pluginName,
			"hook", hook,
			"error", err,
		)
	}
}

// callWithTimeout runs fn, giving up after the registry timeout or when ctx
// is done. A hook that outlives its deadline keeps running in the background.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
