package domain

import "time"

// Outcomes recorded on audit entries.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditLog represents one audited tenant call.
type AuditLog struct {
	ID       string
	TenantID string
	Action   string
	Resource string
	IP       string
	// Outcome is success or failure; failures carry the error code after a colon (e.g. "failure:not_linked").
	Outcome   string
	CreatedAt time.Time
}
