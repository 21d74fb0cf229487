package model

import "time"

type EffectType string

const (
	EffectInc   EffectType = "inc"
	EffectDec   EffectType = "dec"
	EffectReset EffectType = "reset"
	EffectSet   EffectType = "set"
)

// Effect is a declarative mutation applied to a named quota field as the
// consequence of a paid purchase, and reversed on refund.
type Effect struct {
	Target string     `json:"target"`
	Type   EffectType `json:"effect_type"`
	Value  int64      `json:"value"`
}

// quotaField is a typed accessor over one mutable user field. The table below
// is the closed set of targets effects may address; targets outside it are
// skipped, not failed, so the catalog can grow fields ahead of a deploy.
type quotaField struct {
	get func(*User) int64
	set func(*User, int64)
	// onReset/onUnreset cover fields whose reset carries extra bookkeeping.
	// For request_count the quota window reference timestamp moves with it.
	onReset   func(*User, time.Time)
	onUnreset func(*User, time.Time)
}

var quotaFields = map[string]quotaField{
	"request_limit": {
		get: func(u *User) int64 { return u.RequestLimit },
		set: func(u *User, v int64) { u.RequestLimit = v },
	},
	"request_count": {
		get: func(u *User) int64 { return u.RequestCount },
		set: func(u *User, v int64) { u.RequestCount = v },
		onReset: func(u *User, at time.Time) {
			u.FirstRequestAt = &at
		},
		onUnreset: func(u *User, at time.Time) {
			// The pre-reset value is unrecoverable; policy is "restore to
			// full allowance" with a fresh window reference, not "restore
			// to exact prior value".
			u.RequestCount = u.RequestLimit
			u.FirstRequestAt = &at
		},
	},
	"task_points": {
		get: func(u *User) int64 { return u.TaskPoints },
		set: func(u *User, v int64) { u.TaskPoints = v },
	},
	"invited_count": {
		get: func(u *User) int64 { return u.InvitedCount },
		set: func(u *User, v int64) { u.InvitedCount = v },
	},
}

// ApplyEffects mutates u in place. Unknown targets are ignored.
func ApplyEffects(u *User, effects []Effect, now time.Time) {
	for _, e := range effects {
		f, ok := quotaFields[e.Target]
		if !ok {
			continue
		}
		switch e.Type {
		case EffectInc:
			f.set(u, f.get(u)+e.Value)
		case EffectDec:
			f.set(u, f.get(u)-e.Value)
		case EffectReset:
			f.set(u, 0)
			if f.onReset != nil {
				f.onReset(u, now)
			}
		case EffectSet:
			f.set(u, e.Value)
		}
	}
}

// ReverseEffects undoes ApplyEffects for a refund. INC and DEC invert their
// arithmetic exactly. RESET is restored via the field's onUnreset hook when it
// has one (see the request_count policy above). SET has no recoverable prior
// value and is left as-is.
func ReverseEffects(u *User, effects []Effect, refundedAt time.Time) {
	for _, e := range effects {
		f, ok := quotaFields[e.Target]
		if !ok {
			continue
		}
		switch e.Type {
		case EffectInc:
			f.set(u, f.get(u)-e.Value)
		case EffectDec:
			f.set(u, f.get(u)+e.Value)
		case EffectReset:
			if f.onUnreset != nil {
				f.onUnreset(u, refundedAt)
			}
		case EffectSet:
			// intentionally not reversed
		}
	}
}
