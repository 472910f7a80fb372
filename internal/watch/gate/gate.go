// Package gate decides whether a registry refresh is permitted now. Pure
// cooldown arithmetic: persistence of the refresh timestamp is the
// orchestrator's job, so a failed fetch never starts a new window.
package gate

import (
	"time"
)

// State classifies a domain's refresh eligibility.
type State string

const (
	// NeverRefreshed means no registry data has been fetched yet.
	NeverRefreshed State = "never_refreshed"
	// OnCooldown means the window since the last refresh has not elapsed.
	OnCooldown State = "on_cooldown"
	// Refreshable means a refresh is permitted now.
	Refreshable State = "refreshable"
)

// Decision carries the state plus remaining cooldown, rounded up to whole
// hours for user-facing "try again in N hours" messaging.
type Decision struct {
	State          State
	HoursRemaining int
}

// Allowed reports whether a refresh may proceed.
func (d Decision) Allowed() bool {
	return d.State != OnCooldown
}

// Check evaluates the cooldown rule. force always wins; an absent
// lastRefreshedAt means the domain was never refreshed and is always
// eligible.
func Check(lastRefreshedAt *time.Time, now time.Time, window time.Duration, force bool) Decision {
	if lastRefreshedAt == nil {
		return Decision{State: NeverRefreshed}
	}
	if force {
		return Decision{State: Refreshable}
	}

	cooldownEnds := lastRefreshedAt.Add(window)
	if now.Before(cooldownEnds) {
		remaining := cooldownEnds.Sub(now)
		hours := int(remaining / time.Hour)
		if remaining%time.Hour != 0 {
			hours++
		}
		return Decision{State: OnCooldown, HoursRemaining: hours}
	}
	return Decision{State: Refreshable}
}
