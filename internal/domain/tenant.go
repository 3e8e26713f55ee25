package domain

import "time"

// Tenant is a row in the control-plane registry. Each tenant owns an
// isolated ticket database reachable via DSN.
type Tenant struct {
	ID        int64
	Code      string
	Name      string
	DSN       string
	IsActive  bool
	CreatedAt time.Time
}

// TenantSettings carries persisted per-tenant worker configuration.
type TenantSettings struct {
	TenantCode              string
	SLACheckIntervalSeconds int
	UpdatedAt               time.Time
}

// CheckInterval returns the tenant's sweep cadence, clamped to a floor
// and defaulted when unset.
func (s TenantSettings) CheckInterval(defaultSeconds, floorSeconds int) time.Duration {
	seconds := s.SLACheckIntervalSeconds
	if seconds <= 0 {
		seconds = defaultSeconds
	}
	if seconds < floorSeconds {
		seconds = floorSeconds
	}
	return time.Duration(seconds) * time.Second
}
