package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger used to report recorder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithEnabledActions restricts auditing to the given actions.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) { e.enabled = actionSet(actions) }
}

// WithDisabledActions audits everything except the given actions. It can be
// combined with WithEnabledActions to narrow an allow-list further.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = actionSet(AllActions())
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// AllActions lists every action the extension can emit.
func AllActions() []string {
	return []string{
		ActionJournalCreated,
		ActionTransactionCredited,
		ActionTransactionDebited,
		ActionBalanceDiverged,
		ActionBalanceRepaired,
	}
}

func actionSet(actions []string) map[string]bool {
	set := make(map[string]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return set
}
