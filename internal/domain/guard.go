package domain

// GuardResult is the outcome of a guard check (idempotency, circuit breaker).
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}
