package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nzila/unionkb/internal/config"
	"github.com/nzila/unionkb/internal/errs"
	"github.com/nzila/unionkb/internal/models"
)

// Metering window metrics.
const (
	MetricRequestsPerMinute = "requests_per_minute"
	MetricTokensPerHour     = "tokens_per_hour"
	MetricCostPerDay        = "cost_per_day"
)

// Counter TTLs run slightly longer than their windows so stale buckets
// self-expire without an external sweep process.
const (
	rpmTTL  = 90 * time.Second
	tphTTL  = 65 * time.Minute
	costTTL = 25 * time.Hour
)

// Limiter enforces per-tenant requests/minute, tokens/hour, and dollars/day
// against a shared counter store, plus hard monthly budgets. It is safe
// across multiple process instances: every counter mutation is a single
// atomic round trip to the store.
type Limiter struct {
	store    CounterStore
	budgets  BudgetStore
	cfg      *config.RateLimitConfig
	alerter  *alerter
	throttle *rate.Limiter // optional local smoothing, nil when disabled
	logger   *zap.Logger   // optional
	now      func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithLogger sets a logger for degraded-mode and alert events.
func WithLogger(l *zap.Logger) LimiterOption {
	return func(lim *Limiter) { lim.logger = l }
}

// WithNotifier wires a budget alert transport and recipient resolution.
func WithNotifier(n Notifier, recipients RecipientResolver) LimiterOption {
	return func(lim *Limiter) {
		cooldown := time.Duration(lim.cfg.AlertCooldownSeconds) * time.Second
		lim.alerter = newAlerter(n, recipients, cooldown, lim.logger)
	}
}

// NewLimiter creates a limiter over the given counter and budget stores.
// budgets may be nil when no budget enforcement is wanted.
func NewLimiter(store CounterStore, budgets BudgetStore, cfg *config.RateLimitConfig, opts ...LimiterOption) *Limiter {
	lim := &Limiter{
		store:   store,
		budgets: budgets,
		cfg:     cfg,
		now:     time.Now,
	}
	if cfg.ProactiveRate > 0 {
		burst := int(math.Ceil(cfg.ProactiveRate))
		if burst < 1 {
			burst = 1
		}
		lim.throttle = rate.NewLimiter(rate.Limit(cfg.ProactiveRate), burst)
	}
	for _, opt := range opts {
		opt(lim)
	}
	return lim
}

func (lim *Limiter) keys(tenant string, now time.Time) (rpmKey, tphKey, costKey string) {
	rpmKey = fmt.Sprintf("rl:%s:rpm:%d", tenant, now.Unix()/60)
	tphKey = fmt.Sprintf("rl:%s:tph:%d", tenant, now.Unix()/3600)
	costKey = fmt.Sprintf("rl:%s:cost:%s", tenant, now.UTC().Format("2006-01-02"))
	return
}

// CheckLimit decides whether a call may proceed. Windows are checked in
// order (requests/minute, tokens/hour, cost/day, hard budget); the first
// failure short-circuits the rest. If the counter store is unreachable the
// limiter fails open with the decision marked degraded.
func (lim *Limiter) CheckLimit(ctx context.Context, tenant string, estTokens int64, estCostUSD float64) (*models.LimitDecision, error) {
	if lim.throttle != nil && !lim.throttle.Allow() {
		return &models.LimitDecision{
			Allowed:           false,
			Reason:            "local throttle: provider call rate exceeded",
			RetryAfterSeconds: 1,
		}, nil
	}

	now := lim.now()
	rpmKey, tphKey, costKey := lim.keys(tenant, now)

	counters, err := lim.store.Get(ctx, []string{rpmKey, tphKey, costKey})
	if err != nil {
		return lim.failOpen(tenant, "check", err), nil
	}

	if limit := lim.cfg.RequestsPerMinute; limit > 0 && counters[rpmKey] >= limit {
		retryAfter := 60 - int(now.Unix()%60)
		rle := &errs.RateLimitError{
			Tenant:     tenant,
			Metric:     MetricRequestsPerMinute,
			Limit:      limit,
			Current:    counters[rpmKey],
			RetryAfter: time.Duration(retryAfter) * time.Second,
		}
		return lim.reject(tenant, counters, rpmKey, tphKey, costKey, rle.Error(), retryAfter), nil
	}

	if limit := lim.cfg.TokensPerHour; limit > 0 && counters[tphKey]+estTokens > limit {
		retryAfter := 3600 - int(now.Unix()%3600)
		rle := &errs.RateLimitError{
			Tenant:     tenant,
			Metric:     MetricTokensPerHour,
			Limit:      limit,
			Current:    counters[tphKey],
			RetryAfter: time.Duration(retryAfter) * time.Second,
		}
		return lim.reject(tenant, counters, rpmKey, tphKey, costKey, rle.Error(), retryAfter), nil
	}

	estCents := usdToCents(estCostUSD)
	if limit := lim.cfg.CostCentsPerDay; limit > 0 && counters[costKey]+estCents > limit {
		retryAfter := int(time.Until(endOfDayUTC(now)).Seconds()) + 1
		rle := &errs.RateLimitError{
			Tenant:     tenant,
			Metric:     MetricCostPerDay,
			Limit:      limit,
			Current:    counters[costKey],
			RetryAfter: time.Duration(retryAfter) * time.Second,
		}
		return lim.reject(tenant, counters, rpmKey, tphKey, costKey, rle.Error(), retryAfter), nil
	}

	decision := &models.LimitDecision{
		Allowed:      true,
		CurrentUsage: lim.stats(tenant, counters, rpmKey, tphKey, costKey),
	}

	if lim.budgets != nil {
		budget, err := lim.budgets.Get(ctx, tenant)
		if err != nil {
			return lim.failOpen(tenant, "budget read", err), nil
		}
		if budget != nil && budget.MonthlyLimitUSD > 0 {
			projected := budget.CurrentSpendUSD + estCostUSD
			lim.alerter.check(ctx, tenant, projected, budget.MonthlyLimitUSD)
			decision.CurrentUsage.SpendUSD = budget.CurrentSpendUSD
			decision.CurrentUsage.MonthlyLimitUSD = budget.MonthlyLimitUSD
			if budget.HardLimit && projected > budget.MonthlyLimitUSD {
				be := &errs.BudgetError{
					Tenant:          tenant,
					ProjectedUSD:    projected,
					MonthlyLimitUSD: budget.MonthlyLimitUSD,
				}
				decision.Allowed = false
				decision.Reason = be.Error()
				return decision, nil
			}
		}
	}
	return decision, nil
}

// RecordUsage increments all three window counters atomically and adds the
// actual cost to the tenant's budget spend. Counter TTLs are refreshed on
// every record so stale windows self-clean.
func (lim *Limiter) RecordUsage(ctx context.Context, tenant string, tokens int64, costUSD float64) error {
	now := lim.now()
	rpmKey, tphKey, costKey := lim.keys(tenant, now)
	err := lim.store.IncrAll(ctx, []Increment{
		{Key: rpmKey, Delta: 1, TTL: rpmTTL},
		{Key: tphKey, Delta: tokens, TTL: tphTTL},
		{Key: costKey, Delta: usdToCents(costUSD), TTL: costTTL},
	})
	if err != nil {
		// Fail open: usage recording must not block the business function.
		lim.logDegraded(tenant, "record", err)
		return nil
	}
	if lim.budgets != nil && costUSD > 0 {
		if err := lim.budgets.AddSpend(ctx, tenant, costUSD); err != nil {
			lim.logDegraded(tenant, "budget write", err)
		}
	}
	return nil
}

// GetUsageStats returns a snapshot of the tenant's windows and spend.
func (lim *Limiter) GetUsageStats(ctx context.Context, tenant string) (*models.UsageStats, error) {
	now := lim.now()
	rpmKey, tphKey, costKey := lim.keys(tenant, now)
	counters, err := lim.store.Get(ctx, []string{rpmKey, tphKey, costKey})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	stats := lim.stats(tenant, counters, rpmKey, tphKey, costKey)
	if lim.budgets != nil {
		if budget, err := lim.budgets.Get(ctx, tenant); err == nil && budget != nil {
			stats.SpendUSD = budget.CurrentSpendUSD
			stats.MonthlyLimitUSD = budget.MonthlyLimitUSD
		}
	}
	return stats, nil
}

// ResetLimits clears all of a tenant's window counters. Admin-only; the
// single sanctioned way to zero counters before TTL expiry.
func (lim *Limiter) ResetLimits(ctx context.Context, tenant string) error {
	if err := lim.store.DeletePrefix(ctx, "rl:"+tenant+":"); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	if lim.logger != nil {
		lim.logger.Info("rate limits reset", zap.String("tenant", tenant))
	}
	return nil
}

func (lim *Limiter) stats(tenant string, counters map[string]int64, rpmKey, tphKey, costKey string) *models.UsageStats {
	return &models.UsageStats{
		Tenant: tenant,
		Windows: []models.UsageWindow{
			{Metric: MetricRequestsPerMinute, Current: counters[rpmKey], Limit: lim.cfg.RequestsPerMinute},
			{Metric: MetricTokensPerHour, Current: counters[tphKey], Limit: lim.cfg.TokensPerHour},
			{Metric: MetricCostPerDay, Current: counters[costKey], Limit: lim.cfg.CostCentsPerDay},
		},
	}
}

func (lim *Limiter) reject(tenant string, counters map[string]int64, rpmKey, tphKey, costKey, reason string, retryAfter int) *models.LimitDecision {
	return &models.LimitDecision{
		Allowed:           false,
		Reason:            reason,
		RetryAfterSeconds: retryAfter,
		CurrentUsage:      lim.stats(tenant, counters, rpmKey, tphKey, costKey),
	}
}

// failOpen allows the call when the counter store is unreachable.
// Availability of the underlying business function outranks strict metering.
func (lim *Limiter) failOpen(tenant, op string, err error) *models.LimitDecision {
	lim.logDegraded(tenant, op, err)
	return &models.LimitDecision{Allowed: true, Degraded: true}
}

func (lim *Limiter) logDegraded(tenant, op string, err error) {
	if lim.logger != nil {
		lim.logger.Warn("rate limiter degraded, failing open",
			zap.String("tenant", tenant),
			zap.String("op", op),
			zap.Error(err))
	}
}

func usdToCents(usd float64) int64 {
	return int64(math.Round(usd * 100))
}

func endOfDayUTC(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
