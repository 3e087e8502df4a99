package models

import "time"

// Budget is the external system of record for a tenant's monthly spend ceiling.
// The limiter reads it; the cost meter is the only writer of CurrentSpendUSD.
type Budget struct {
	OrganizationID   string    `json:"organization_id" db:"organization_id"`
	MonthlyLimitUSD  float64   `json:"monthly_limit_usd" db:"monthly_limit_usd"`
	CurrentSpendUSD  float64   `json:"current_spend_usd" db:"current_spend_usd"`
	BillingPeriodEnd time.Time `json:"billing_period_end" db:"billing_period_end"`
	HardLimit        bool      `json:"hard_limit" db:"hard_limit"`
}

// UsageWindow is the current value of one metering window for a tenant.
type UsageWindow struct {
	Metric  string `json:"metric"`
	Current int64  `json:"current"`
	Limit   int64  `json:"limit"`
}

// UsageStats is a point-in-time snapshot of all of a tenant's windows.
type UsageStats struct {
	Tenant          string        `json:"tenant"`
	Windows         []UsageWindow `json:"windows"`
	SpendUSD        float64       `json:"spend_usd"`
	MonthlyLimitUSD float64       `json:"monthly_limit_usd"`
}

// LimitDecision is the outcome of a checkLimit call.
type LimitDecision struct {
	Allowed           bool        `json:"allowed"`
	Reason            string      `json:"reason,omitempty"`
	RetryAfterSeconds int         `json:"retry_after_seconds,omitempty"`
	CurrentUsage      *UsageStats `json:"current_usage,omitempty"`
	// Degraded is set when the counter store was unreachable and the limiter
	// failed open. Observable so operators can tell "no limits hit" from
	// "limiting disabled".
	Degraded bool `json:"degraded,omitempty"`
}
