package models

// AttemptOutcome classifies a single provider invocation inside a fallback chain.
type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptEmpty   AttemptOutcome = "empty"
	AttemptError   AttemptOutcome = "error"
)

// NoProviderSucceeded is the provider name recorded when every provider in a chain was exhausted.
const NoProviderSucceeded = "none"

// ProviderAttemptRecord is the decision trail of one chain step. It is logged, never persisted.
type ProviderAttemptRecord struct {
	Provider string         `json:"provider"`
	Outcome  AttemptOutcome `json:"outcome"`
	Detail   string         `json:"detail,omitempty"`
}
