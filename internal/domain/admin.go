package domain

import (
	"context"
	"time"
)

// Role filter values accepted by the admin listing.
const (
	RoleFilterAdmin = "admin"
	RoleFilterUser  = "user"
)

// Listing page bounds.
const (
	MinPerPage = 1
	MaxPerPage = 100
)

// ListUsersQuery holds the admin listing parameters.
type ListUsersQuery struct {
	Page    int
	PerPage int
	Search  string
	Role    string
}

// AdminUser is one row of the joined identity+profile admin listing.
type AdminUser struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	IsAdmin   bool    `json:"is_admin"`
	Language  string  `json:"language"`
	CreatedAt string  `json:"created_at"`
}

// UserList is a page of the admin listing. Total reflects the full filtered
// set, independent of the page window.
type UserList struct {
	Users   []AdminUser `json:"users"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

// StatsCutoffs are the time boundaries the dashboard counters are computed
// against. Kept as plain values so the arithmetic stays testable outside the
// store.
type StatsCutoffs struct {
	WeekAgo      time.Time
	MonthAgo     time.Time
	StartOfToday time.Time
}

// NewStatsCutoffs derives the counter boundaries from a reference instant:
// rolling 7-day and 30-day windows, and midnight UTC of the reference day.
func NewStatsCutoffs(now time.Time) StatsCutoffs {
	day := now.UTC()
	return StatsCutoffs{
		WeekAgo:      now.Add(-7 * 24 * time.Hour),
		MonthAgo:     now.Add(-30 * 24 * time.Hour),
		StartOfToday: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
	}
}

// UsageStats are the dashboard counters. "Active today" is approximated by
// updated_at >= start of today (UTC); a coarse proxy, kept as observable behavior.
type UsageStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	NewUsersThisWeek  int64 `json:"newUsersThisWeek"`
	NewUsersThisMonth int64 `json:"newUsersThisMonth"`
	ActiveUsersToday  int64 `json:"activeUsersToday"`
}

type AdminUsecase interface {
	ListUsers(ctx context.Context, q ListUsersQuery) (*UserList, error)
	SetAdmin(ctx context.Context, actor EffectiveUser, targetID string, isAdmin bool) error
	DeleteUser(ctx context.Context, actor EffectiveUser, targetID string) error
	ExportCSV(ctx context.Context) ([]byte, error)
	Stats(ctx context.Context) UsageStats
}
