// Package retry classifies upstream failures into a closed set of kinds and
// maps each kind to a backoff delay.
//
// Producers (the GitHub client, the LLM completer) wrap their errors in a
// *Failure at the call boundary. Policy.Do drives the attempt loop: fatal
// kinds (not_found, auth) return at once, every other kind waits the
// computed delay and tries again until MaxAttempts is spent, after which the
// last failure is returned wrapped in ErrExhaustedRetries.
package retry
