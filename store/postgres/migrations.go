package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the accounting store.
var Migrations = migrate.NewGroup("accounting")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_accounting_journals",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS accounting_journals (
    id          TEXT PRIMARY KEY,
    owner_type  TEXT NOT NULL,
    owner_id    TEXT NOT NULL,
    currency    TEXT NOT NULL,
    balance     BIGINT NOT NULL DEFAULT 0,
    sequence    BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounting_journals_owner ON accounting_journals (owner_type, owner_id);
CREATE INDEX IF NOT EXISTS idx_accounting_journals_created ON accounting_journals (created_at, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accounting_journals`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_accounting_transactions",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS accounting_transactions (
    id          TEXT PRIMARY KEY,
    journal_id  TEXT NOT NULL REFERENCES accounting_journals (id),
    sequence    BIGINT NOT NULL,
    amount      BIGINT NOT NULL,
    currency    TEXT NOT NULL,
    ref_type    TEXT NOT NULL DEFAULT '',
    ref_id      TEXT NOT NULL DEFAULT '',
    memo        TEXT NOT NULL DEFAULT '',
    posted_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounting_tx_journal_seq ON accounting_transactions (journal_id, sequence);
CREATE INDEX IF NOT EXISTS idx_accounting_tx_posted ON accounting_transactions (journal_id, posted_at);
CREATE INDEX IF NOT EXISTS idx_accounting_tx_reference ON accounting_transactions (ref_type, ref_id) WHERE ref_type <> '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accounting_transactions`)
				return err
			},
		},
	)
}
