package service

import (
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

// Default reconnect timings.
const (
	DefaultReconnectBaseDelay = 5 * time.Second
	DefaultReconnectMaxDelay  = 5 * time.Minute
	DefaultRateLimitMinDelay  = 30 * time.Second
	maxBackoffShift           = 30
)

// Action is what the policy tells the manager to do after a disconnect.
type Action int

const (
	ActionRetry Action = iota
	ActionStopLoggedOut
	ActionStopReplaced
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionStopLoggedOut:
		return "stop_logged_out"
	case ActionStopReplaced:
		return "stop_replaced"
	default:
		return "unknown"
	}
}

// Decision is the outcome of ReconnectPolicy.Decide.
type Decision struct {
	Action Action
	Delay  time.Duration
	Reason domain.DisconnectReason

	// Attempt is the attempt counter the delay was computed from.
	Attempt int
}

// Stop reports whether the session must not be retried.
func (d Decision) Stop() bool {
	return d.Action != ActionRetry
}

// PolicyConfig configures a ReconnectPolicy.
type PolicyConfig struct {
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RateLimitMinDelay time.Duration
}

// DefaultPolicyConfig returns the default reconnect timings.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		BaseDelay:         DefaultReconnectBaseDelay,
		MaxDelay:          DefaultReconnectMaxDelay,
		RateLimitMinDelay: DefaultRateLimitMinDelay,
	}
}

// ReconnectPolicy decides whether and when to reconnect.
// Decide performs no I/O and never sleeps; waiting is the caller's job.
type ReconnectPolicy struct {
	cfg PolicyConfig
}

// NewReconnectPolicy creates a policy, filling zero fields with defaults.
func NewReconnectPolicy(cfg PolicyConfig) *ReconnectPolicy {
	def := DefaultPolicyConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.RateLimitMinDelay <= 0 {
		cfg.RateLimitMinDelay = def.RateLimitMinDelay
	}
	return &ReconnectPolicy{cfg: cfg}
}

// Config returns the effective configuration.
func (p *ReconnectPolicy) Config() PolicyConfig {
	return p.cfg
}

// Decide returns the decision for reason given the current backoff state,
// together with the state to carry into the next attempt.
func (p *ReconnectPolicy) Decide(reason domain.DisconnectReason, state domain.BackoffState, now time.Time) (Decision, domain.BackoffState) {
	switch reason.Kind {
	case domain.ReasonLoggedOut:
		return Decision{Action: ActionStopLoggedOut, Reason: reason, Attempt: state.Attempt}, state
	case domain.ReasonReplaced:
		return Decision{Action: ActionStopReplaced, Reason: reason, Attempt: state.Attempt}, state
	}

	delay := p.exponential(state.Attempt)
	if reason.Kind == domain.ReasonRateLimited && delay < p.cfg.RateLimitMinDelay {
		delay = p.cfg.RateLimitMinDelay
	}

	next := domain.BackoffState{Attempt: state.Attempt + 1, LastAttempt: now}
	return Decision{Action: ActionRetry, Delay: delay, Reason: reason, Attempt: state.Attempt}, next
}

// exponential returns base * 2^attempt capped at the maximum delay.
func (p *ReconnectPolicy) exponential(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		return p.cfg.MaxDelay
	}
	if p.cfg.BaseDelay > p.cfg.MaxDelay>>uint(attempt) {
		return p.cfg.MaxDelay
	}
	return p.cfg.BaseDelay << uint(attempt)
}

// Reset returns the backoff state to carry after a successful open.
func (p *ReconnectPolicy) Reset() domain.BackoffState {
	return domain.BackoffState{}
}
