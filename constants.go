package pfq

import "github.com/ymaxgit/go-pfq/internal/constants"

// Re-export the constants callers need for public API calls.
const (
	DefaultCaplen = constants.DefaultCaplen
	DefaultOffset = constants.DefaultOffset
	DefaultSlots  = constants.DefaultSlots

	AnyGroup = constants.AnyGroup
	AnyQueue = constants.AnyQueue

	DefaultClassMask = constants.DefaultClassMask

	PolicyUndefined  = constants.PolicyUndefined
	PolicyPrivate    = constants.PolicyPrivate
	PolicyRestricted = constants.PolicyRestricted
	PolicyShared     = constants.PolicyShared

	TxDeferred = constants.TxDeferred
	TxThreaded = constants.TxThreaded
)
