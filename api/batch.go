package api

import (
	"encoding/json"
	"slices"
)

// ItemOutcome is the result of one item of a batch reply.
// Exactly one of Success and Error is set.
type ItemOutcome struct {
	Index   int
	Success json.RawMessage
	Error   *APIError
}

// OK reports whether the item succeeded.
func (o ItemOutcome) OK() bool { return o.Error == nil }

// BatchResult holds the ordered per-item outcomes of a bridge reply.
type BatchResult struct {
	Outcomes []ItemOutcome
}

// OK reports whether every item succeeded. An empty result is OK.
func (r *BatchResult) OK() bool {
	return !slices.ContainsFunc(r.Outcomes, func(o ItemOutcome) bool { return !o.OK() })
}

// Succeeded returns the successful outcomes in order.
func (r *BatchResult) Succeeded() []ItemOutcome {
	return r.filter(true)
}

// Failed returns the failed outcomes in order.
func (r *BatchResult) Failed() []ItemOutcome {
	return r.filter(false)
}

// Err returns a *PartialFailure when at least one item failed, otherwise nil.
func (r *BatchResult) Err() error {
	if r == nil || r.OK() {
		return nil
	}
	return &PartialFailure{Outcomes: slices.Clone(r.Outcomes)}
}

// Unauthorized reports whether any item failed with an "unauthorized user" error.
func (r *BatchResult) Unauthorized() bool {
	return slices.ContainsFunc(r.Outcomes, func(o ItemOutcome) bool {
		return o.Error != nil && o.Error.Type == ErrorTypeUnauthorizedUser
	})
}

func (r *BatchResult) filter(ok bool) []ItemOutcome {
	var out []ItemOutcome
	for _, o := range r.Outcomes {
		if o.OK() == ok {
			out = append(out, o)
		}
	}
	return out
}
