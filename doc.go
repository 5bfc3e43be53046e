// Package accounting provides a per-owner money journal for Go applications.
//
// Accounting is designed as a library, not a service. Every entity that
// needs a balance (a user, an account, a wallet) owns exactly one Journal in
// one currency. Credits and debits append immutable Transactions to it and
// keep a cached balance in step, so reading a balance never scans history.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/accounting"
//	    "github.com/xraph/accounting/store/memory"
//	)
//
//	l := accounting.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	j, err := l.Init(ctx, "user", "42", "usd")
//	_, err = l.Credit(ctx, j.ID, accounting.USD(10000))
//	_, err = l.DebitMajorUnits(ctx, j.ID, decimal.RequireFromString("100.99"))
//
//	balance, _ := l.GetBalance(ctx, j.ID) // -0.99 USD
//
// # Money
//
// Amounts are int64 minor units with a lowercase ISO 4217 currency code.
// Decimal major-unit input is rounded once, half away from zero, to the
// currency's exponent. Arithmetic between different currencies fails with
// ErrCurrencyMismatch.
//
// # References
//
// A transaction may point at an external entity ("product", "7"). The
// engine stores the pointer only; hosts register a Resolver per type tag
// to turn it back into the entity:
//
//	reference.MustRegister(l.Resolvers(), "product", products.Find)
//	p, err := l.ReferencedEntity(ctx, tx)
//
// # Audit
//
// The cached balance must always equal the sum of the journal's
// transactions. RecomputeBalance, Audit, AuditAll and RepairBalance check
// and restore that invariant.
//
// # TypeID
//
// Journals and transactions use TypeID identifiers:
//
//	jrnl_01h2xcejqtf2nbrexx3vqjhp41  // Journal ID
//	jtx_01h455vb4pex5vsknk084sn02q   // Transaction ID
package accounting
