// Package errs defines the error taxonomy shared across the knowledge core.
// Domain errors are distinct from infrastructure errors; callers match them
// with errors.Is / errors.As.
package errs

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupportedFormat indicates no parser claimed the ingested input.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyContent indicates parsed content was empty or whitespace-only.
	ErrEmptyContent = errors.New("empty content")

	// ErrTemplateNotFound indicates the requested template id is unregistered.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMissingRequiredContext indicates a template variable had no value at
	// resolution time. Logged as a compliance issue, non-fatal to the caller.
	ErrMissingRequiredContext = errors.New("missing required context")

	// ErrUnsupportedJurisdiction indicates the requested jurisdiction is not in
	// the template's supported list. Resolution falls back to the federal default.
	ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")

	// ErrStoreUnavailable indicates the shared counter store is unreachable.
	// The limiter fails open on this; it is never surfaced as a hard error.
	ErrStoreUnavailable = errors.New("counter store unavailable")
)

// RateLimitError is returned when a tenant exceeds a metering window.
// It carries a machine-readable reason and the time until the window resets.
type RateLimitError struct {
	Tenant     string
	Metric     string // "requests_per_minute", "tokens_per_hour", "cost_per_day"
	Limit      int64
	Current    int64
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s at %d/%d, retry after %ds",
		e.Tenant, e.Metric, e.Current, e.Limit, int(e.RetryAfter.Seconds()))
}

// BudgetError is returned when a hard monthly budget would be exceeded.
// The dollar comparison is part of the contract: rejections must be actionable.
type BudgetError struct {
	Tenant          string
	ProjectedUSD    float64
	MonthlyLimitUSD float64
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("budget exceeded for %s: projected spend $%.2f exceeds monthly limit $%.2f",
		e.Tenant, e.ProjectedUSD, e.MonthlyLimitUSD)
}
