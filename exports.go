package accounting

import (
	"github.com/xraph/accounting/journal"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/transaction"
	"github.com/xraph/accounting/types"
)

// Re-export common types for convenience so users don't have to import the
// sub-packages for everyday calls.

// Money is re-exported from types package.
type Money = types.Money

// Journal is re-exported from journal package.
type Journal = journal.Journal

// Transaction is re-exported from transaction package.
type Transaction = transaction.Transaction

// Reference is re-exported from reference package.
type Reference = reference.Reference

// Identifiable is re-exported from reference package.
type Identifiable = reference.Identifiable

// Resolver is re-exported from reference package.
type Resolver = reference.Resolver

// ResolverFunc is re-exported from reference package.
type ResolverFunc = reference.ResolverFunc

// Re-export Money constructors
var (
	USD            = types.USD
	EUR            = types.EUR
	GBP            = types.GBP
	JPY            = types.JPY
	Zero           = types.Zero
	FromMinorUnits = types.FromMinorUnits
	FromMajorUnits = types.FromMajorUnits
	Sum            = types.Sum
)

// Re-export Reference constructors
var (
	NewReference = reference.New
	ReferenceTo  = reference.Of
)
