package enums

import "time"

// InviteState is the computed lifecycle state of a profile invite.
// Redemption and revocation are stored; expiry is derived from the
// expiry timestamp at read time so a stored flag cannot drift.
type InviteState string

const (
	InviteStatePending  InviteState = "pending"
	InviteStateRedeemed InviteState = "redeemed"
	InviteStateExpired  InviteState = "expired"
)

// String implements fmt.Stringer.
func (s InviteState) String() string {
	return string(s)
}

// InviteClock is the minimal shape CurrentInviteState needs from an invite
// record. Consumed wins over expiry: a redeemed invite stays redeemed even
// after its expiry timestamp passes.
type InviteClock struct {
	Consumed  bool
	ExpiresAt time.Time
}

// CurrentInviteState derives the lifecycle state at the given instant.
func CurrentInviteState(invite InviteClock, now time.Time) InviteState {
	if invite.Consumed {
		return InviteStateRedeemed
	}
	if now.After(invite.ExpiresAt) {
		return InviteStateExpired
	}
	return InviteStatePending
}
