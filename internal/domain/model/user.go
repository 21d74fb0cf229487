package model

import "time"

// User is the quota record this core mutates. Other subsystems (task claims,
// referral rewards) write the same row, so every mutation here goes through
// the same read-modify-write-in-tx discipline.
type User struct {
	ID         string // UUID
	TelegramID int64

	Name         string
	Username     string
	LanguageCode string
	IsPremium    bool

	// Quota fields addressable by product effects.
	RequestCount   int64
	RequestLimit   int64
	FirstRequestAt *time.Time
	TaskPoints     int64
	InvitedCount   int64

	IsBanned    bool
	IsUnlimited bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
