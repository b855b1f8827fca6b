package delivery

import "net/http"

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// OutcomeSuccess means the push service accepted the message.
	OutcomeSuccess Outcome = iota
	// OutcomeTransientFailure covers timeouts, 5xx responses, and anything
	// else that may succeed on a later run. No state change.
	OutcomeTransientFailure
	// OutcomePermanentFailure means the endpoint is gone for good (404 or
	// 410 from the push service). The subscriber record must be deleted.
	OutcomePermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransientFailure:
		return "transient_failure"
	case OutcomePermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// ClassifyStatus maps a push-service HTTP status to an Outcome.
func ClassifyStatus(code int) Outcome {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return OutcomePermanentFailure
	case code >= 200 && code < 300:
		return OutcomeSuccess
	default:
		return OutcomeTransientFailure
	}
}
