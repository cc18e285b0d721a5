package domain

import "time"

// Tenant represents a client system allowed to link end-users and request OTPs (stored in tenants table).
type Tenant struct {
	ID          string
	SecretHash  string
	DisplayName string
	CreatedAt   time.Time
}
