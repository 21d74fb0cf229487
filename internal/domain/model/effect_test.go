package model

import (
	"testing"
	"time"
)

func TestApplyEffects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inc and dec adjust the target field", func(t *testing.T) {
		u := &User{RequestLimit: 50, TaskPoints: 10}
		ApplyEffects(u, []Effect{
			{Target: "request_limit", Type: EffectInc, Value: 10},
			{Target: "task_points", Type: EffectDec, Value: 3},
		}, now)

		if u.RequestLimit != 60 {
			t.Fatalf("RequestLimit = %d, want 60", u.RequestLimit)
		}
		if u.TaskPoints != 7 {
			t.Fatalf("TaskPoints = %d, want 7", u.TaskPoints)
		}
	})

	t.Run("reset zeroes request_count and stamps the window", func(t *testing.T) {
		old := now.Add(-20 * time.Hour)
		u := &User{RequestCount: 42, FirstRequestAt: &old}
		ApplyEffects(u, []Effect{{Target: "request_count", Type: EffectReset}}, now)

		if u.RequestCount != 0 {
			t.Fatalf("RequestCount = %d, want 0", u.RequestCount)
		}
		if u.FirstRequestAt == nil || !u.FirstRequestAt.Equal(now) {
			t.Fatalf("FirstRequestAt = %v, want %v", u.FirstRequestAt, now)
		}
	})

	t.Run("set overwrites the field", func(t *testing.T) {
		u := &User{InvitedCount: 3}
		ApplyEffects(u, []Effect{{Target: "invited_count", Type: EffectSet, Value: 9}}, now)
		if u.InvitedCount != 9 {
			t.Fatalf("InvitedCount = %d, want 9", u.InvitedCount)
		}
	})

	t.Run("unknown target is skipped", func(t *testing.T) {
		u := &User{RequestLimit: 50}
		ApplyEffects(u, []Effect{
			{Target: "reputation", Type: EffectInc, Value: 5},
			{Target: "request_limit", Type: EffectInc, Value: 5},
		}, now)
		if u.RequestLimit != 55 {
			t.Fatalf("RequestLimit = %d, want 55", u.RequestLimit)
		}
	})
}

func TestReverseEffects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	refundedAt := now.Add(3 * time.Hour)

	t.Run("inc and dec invert exactly", func(t *testing.T) {
		u := &User{RequestLimit: 50}
		effects := []Effect{{Target: "request_limit", Type: EffectInc, Value: 20}}
		ApplyEffects(u, effects, now)
		ReverseEffects(u, effects, refundedAt)
		if u.RequestLimit != 50 {
			t.Fatalf("RequestLimit = %d, want 50", u.RequestLimit)
		}
	})

	t.Run("reset reversal restores a full allowance, not the prior count", func(t *testing.T) {
		u := &User{RequestCount: 42, RequestLimit: 60}
		effects := []Effect{{Target: "request_count", Type: EffectReset}}
		ApplyEffects(u, effects, now)
		ReverseEffects(u, effects, refundedAt)

		if u.RequestCount != u.RequestLimit {
			t.Fatalf("RequestCount = %d, want RequestLimit %d", u.RequestCount, u.RequestLimit)
		}
		if u.FirstRequestAt == nil || !u.FirstRequestAt.Equal(refundedAt) {
			t.Fatalf("FirstRequestAt = %v, want %v", u.FirstRequestAt, refundedAt)
		}
	})

	t.Run("set is not reversed", func(t *testing.T) {
		u := &User{TaskPoints: 5}
		effects := []Effect{{Target: "task_points", Type: EffectSet, Value: 100}}
		ApplyEffects(u, effects, now)
		ReverseEffects(u, effects, refundedAt)
		if u.TaskPoints != 100 {
			t.Fatalf("TaskPoints = %d, want 100 (SET must stay)", u.TaskPoints)
		}
	})
}
