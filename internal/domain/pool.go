package domain

// PoolStatus tracks a ticket's position in the unclaimed pool. The
// claim state machine is owned elsewhere; the scorer only reads it.
type PoolStatus string

const (
	PoolStatusOpen          PoolStatus = "OPEN_POOL"
	PoolStatusClaimedLocked PoolStatus = "CLAIMED_LOCKED"
	PoolStatusEscalated     PoolStatus = "ESCALATED"
	PoolStatusAssigned      PoolStatus = "ASSIGNED"
)

// Scorable reports whether the pool status is eligible for scoring.
func (p PoolStatus) Scorable() bool {
	switch p {
	case PoolStatusOpen, PoolStatusClaimedLocked, PoolStatusEscalated:
		return true
	}
	return false
}

// Pool score bounds and freshness.
const (
	PoolScoreMin = 0
	PoolScoreMax = 100
)
