package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Budget alert thresholds as fractions of the monthly limit.
const (
	alertWarningThreshold  = 0.80
	alertCriticalThreshold = 0.95
)

// Alert levels.
const (
	AlertWarning  = "warning"
	AlertCritical = "critical"
)

// Notifier dispatches a budget alert to recipients. The transport is an
// external collaborator (email, chat webhook).
type Notifier interface {
	Notify(ctx context.Context, recipients []string, subject, body string) error
}

// RecipientResolver returns the admin recipients for a tenant.
type RecipientResolver func(tenant string) []string

// LogNotifier logs alerts instead of delivering them. Default when no real
// transport is wired.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify logs the alert at Warn.
func (n *LogNotifier) Notify(ctx context.Context, recipients []string, subject, body string) error {
	if n.Logger != nil {
		n.Logger.Warn("budget alert",
			zap.Strings("recipients", recipients),
			zap.String("subject", subject),
			zap.String("body", body))
	}
	return nil
}

// alerter dispatches threshold-crossing alerts with a per-tenant, per-level
// cooldown so a tenant hovering at a threshold does not get an alert per
// request.
type alerter struct {
	notifier   Notifier
	recipients RecipientResolver
	cooldown   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time // tenant + "/" + level
	now      func() time.Time
}

func newAlerter(notifier Notifier, recipients RecipientResolver, cooldown time.Duration, logger *zap.Logger) *alerter {
	return &alerter{
		notifier:   notifier,
		recipients: recipients,
		cooldown:   cooldown,
		logger:     logger,
		lastSent:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// check fires at most one alert for the highest crossed threshold.
func (a *alerter) check(ctx context.Context, tenant string, projectedUSD, limitUSD float64) {
	if a == nil || a.notifier == nil || limitUSD <= 0 {
		return
	}
	ratio := projectedUSD / limitUSD
	var level string
	switch {
	case ratio >= alertCriticalThreshold:
		level = AlertCritical
	case ratio >= alertWarningThreshold:
		level = AlertWarning
	default:
		return
	}

	key := tenant + "/" + level
	now := a.now()
	a.mu.Lock()
	if last, ok := a.lastSent[key]; ok && now.Sub(last) < a.cooldown {
		a.mu.Unlock()
		return
	}
	a.lastSent[key] = now
	a.mu.Unlock()

	var recipients []string
	if a.recipients != nil {
		recipients = a.recipients(tenant)
	}
	subject := fmt.Sprintf("[%s] budget alert for %s", level, tenant)
	body := fmt.Sprintf("Projected monthly spend $%.2f is %.0f%% of the $%.2f limit.",
		projectedUSD, ratio*100, limitUSD)
	if err := a.notifier.Notify(ctx, recipients, subject, body); err != nil && a.logger != nil {
		a.logger.Warn("budget alert dispatch failed",
			zap.String("tenant", tenant),
			zap.String("level", level),
			zap.Error(err))
	}
}
