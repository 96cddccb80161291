// Package quota enforces per-user daily and monthly token budgets. Windows
// roll over lazily when a user's record is next read.
package quota

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DailyWindow   = 24 * time.Hour
	MonthlyWindow = 30 * 24 * time.Hour

	DefaultDailyLimit   int64 = 300000
	DefaultMonthlyLimit int64 = 5000000
)

var (
	ErrQuotaExceeded    = errors.New("token quota exceeded")
	ErrInvalidResetType = errors.New("reset type must be daily, monthly or all")
)

var printer = message.NewPrinter(language.English)

// Store persists usage records. GetOrCreate seeds new records with limits.
type Store interface {
	GetOrCreate(ctx context.Context, userID string, limits Limits) (*entity.UserUsage, error)
	Save(ctx context.Context, usage *entity.UserUsage) error
}

type Limits struct {
	Daily   int64
	Monthly int64
}

// Decision is the outcome of a reservation check. Reason is user facing.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil when allowed, otherwise ErrQuotaExceeded carrying Reason.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrQuotaExceeded, d.Reason)
}

type Stats struct {
	DailyRemaining    int64   `json:"daily_remaining"`
	DailyLimit        int64   `json:"daily_limit"`
	DailyUsed         int64   `json:"daily_used"`
	DailyPercentage   float64 `json:"daily_percentage"`
	MonthlyRemaining  int64   `json:"monthly_remaining"`
	MonthlyLimit      int64   `json:"monthly_limit"`
	MonthlyUsed       int64   `json:"monthly_used"`
	MonthlyPercentage float64 `json:"monthly_percentage"`
	TotalUsed         int64   `json:"total_used"`
	TotalRequests     int     `json:"total_requests"`
	ResetsIn          string  `json:"resets_in"`
}

type ResetType string

const (
	ResetDaily   ResetType = "daily"
	ResetMonthly ResetType = "monthly"
	ResetAll     ResetType = "all"
)

type Ledger struct {
	store  Store
	limits Limits
	logger logger.ILogger
	now    func() time.Time
}

type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func NewLedger(store Store, limits Limits, log logger.ILogger, opts ...Option) *Ledger {
	if limits.Daily <= 0 {
		limits.Daily = DefaultDailyLimit
	}
	if limits.Monthly <= 0 {
		limits.Monthly = DefaultMonthlyLimit
	}
	l := &Ledger{store: store, limits: limits, logger: log, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// load fetches the record and persists any window rollover.
func (l *Ledger) load(ctx context.Context, userID string) (*entity.UserUsage, error) {
	usage, err := l.store.GetOrCreate(ctx, userID, l.limits)
	if err != nil {
		return nil, err
	}
	if l.rollover(usage) {
		if err := l.store.Save(ctx, usage); err != nil {
			return nil, err
		}
	}
	return usage, nil
}

func (l *Ledger) rollover(u *entity.UserUsage) bool {
	now := l.now().UTC()
	rolled := false
	if now.Sub(u.LastDailyReset) >= DailyWindow {
		u.TokensUsedToday = 0
		u.RequestsToday = 0
		u.LastDailyReset = now
		rolled = true
	}
	if now.Sub(u.LastMonthlyReset) >= MonthlyWindow {
		u.TokensUsedThisMonth = 0
		u.LastMonthlyReset = now
		rolled = true
	}
	return rolled
}

// CheckAndReserve decides whether a request estimated at estimated tokens may
// run. Nothing is recorded until Commit; concurrent requests can overshoot.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID string, estimated int64) (Decision, error) {
	usage, err := l.load(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	var reason string
	switch {
	case usage.TokensUsedToday >= usage.DailyTokenLimit:
		reason = fmt.Sprintf("Daily token limit reached (%s tokens). Resets in %s.",
			printer.Sprintf("%d", usage.DailyTokenLimit), l.untilDailyReset(usage))
	case usage.TokensUsedThisMonth >= usage.MonthlyTokenLimit:
		reason = fmt.Sprintf("Monthly token limit reached (%s tokens). Resets in %s.",
			printer.Sprintf("%d", usage.MonthlyTokenLimit), l.untilMonthlyReset(usage))
	case estimated > 0 && usage.TokensUsedToday+estimated > usage.DailyTokenLimit:
		reason = "Request would exceed daily token limit"
	default:
		return Decision{Allowed: true}, nil
	}

	l.logger.Warn(logger.ModuleQuota, "Quota check rejected request", map[string]interface{}{
		"user_id": userID,
		"reason":  reason,
	})
	return Decision{Allowed: false, Reason: reason}, nil
}

// Commit records actual usage for one completed request.
func (l *Ledger) Commit(ctx context.Context, userID string, actual int64) error {
	usage, err := l.load(ctx, userID)
	if err != nil {
		return err
	}
	if actual < 0 {
		actual = 0
	}
	usage.TokensUsedToday += actual
	usage.TokensUsedThisMonth += actual
	usage.TotalTokensUsed += actual
	usage.RequestsToday++
	usage.TotalRequests++
	if err := l.store.Save(ctx, usage); err != nil {
		return err
	}
	l.logger.Info(logger.ModuleQuota, "Tokens recorded", map[string]interface{}{
		"user_id":     userID,
		"tokens":      actual,
		"daily_total": usage.TokensUsedToday,
	})
	return nil
}

func (l *Ledger) Stats(ctx context.Context, userID string) (*Stats, error) {
	usage, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		DailyRemaining:    max(0, usage.DailyTokenLimit-usage.TokensUsedToday),
		DailyLimit:        usage.DailyTokenLimit,
		DailyUsed:         usage.TokensUsedToday,
		DailyPercentage:   percentage(usage.TokensUsedToday, usage.DailyTokenLimit),
		MonthlyRemaining:  max(0, usage.MonthlyTokenLimit-usage.TokensUsedThisMonth),
		MonthlyLimit:      usage.MonthlyTokenLimit,
		MonthlyUsed:       usage.TokensUsedThisMonth,
		MonthlyPercentage: percentage(usage.TokensUsedThisMonth, usage.MonthlyTokenLimit),
		TotalUsed:         usage.TotalTokensUsed,
		TotalRequests:     usage.TotalRequests,
		ResetsIn:          l.untilDailyReset(usage),
	}, nil
}

// Reset zeroes counters for an administrator. Reset timestamps are untouched.
func (l *Ledger) Reset(ctx context.Context, userID string, resetType ResetType) (*entity.UserUsage, error) {
	usage, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch resetType {
	case ResetDaily:
		usage.TokensUsedToday = 0
		usage.RequestsToday = 0
	case ResetMonthly:
		usage.TokensUsedThisMonth = 0
	case ResetAll:
		usage.TokensUsedToday = 0
		usage.TokensUsedThisMonth = 0
		usage.RequestsToday = 0
	default:
		return nil, ErrInvalidResetType
	}
	if err := l.store.Save(ctx, usage); err != nil {
		return nil, err
	}
	l.logger.Info(logger.ModuleQuota, "Quota reset", map[string]interface{}{
		"user_id": userID,
		"type":    string(resetType),
	})
	return usage, nil
}

func (l *Ledger) untilDailyReset(u *entity.UserUsage) string {
	remaining := u.LastDailyReset.Add(DailyWindow).Sub(l.now().UTC())
	return FormatDuration(remaining)
}

func (l *Ledger) untilMonthlyReset(u *entity.UserUsage) string {
	remaining := u.LastMonthlyReset.Add(MonthlyWindow).Sub(l.now().UTC())
	return fmt.Sprintf("%d days", int(remaining.Hours()/24))
}

// FormatDuration renders d as "Xh Ym", flooring both parts.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func percentage(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(used)/float64(limit)*1000) / 10
}
