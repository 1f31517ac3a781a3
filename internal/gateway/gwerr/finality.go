package gwerr

// Finality tells a caller what it can conclude about an on-chain effect.
type Finality string

const (
	// FinalitySucceeded means the transaction is known to be included and successful.
	FinalitySucceeded Finality = "succeeded"
	// FinalityFailed means nothing happened on chain, or it happened and reverted.
	FinalityFailed Finality = "failed"
	// FinalityUnknown means the transaction may still confirm; check later by hash.
	FinalityUnknown Finality = "unknown"
)

// FinalityOf maps an operation's error to what is known about its effect.
func FinalityOf(err error) Finality {
	if err == nil {
		return FinalitySucceeded
	}

	if Is(err, KindTimedOut) {
		return FinalityUnknown
	}

	return FinalityFailed
}
