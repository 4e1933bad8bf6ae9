package domain

import (
	"context"
	"time"
)

// AgeGroupCounts is the fixed age-bucket histogram over active registrations.
// Records without an age fall into MatureAdult so the buckets always sum to
// the total active count.
type AgeGroupCounts struct {
	Child       int `json:"child_under_13"`
	Teen        int `json:"teen_13_17"`
	YoungAdult  int `json:"young_adult_18_25"`
	Adult       int `json:"adult_26_35"`
	MatureAdult int `json:"mature_adult_36_plus"`
}

// Sum returns the total across all buckets.
func (a AgeGroupCounts) Sum() int {
	return a.Child + a.Teen + a.YoungAdult + a.Adult + a.MatureAdult
}

// RegistrationStats is the summary statistics block for the dashboard and the
// analytics bundle. Rates and growth are percentages rounded to one decimal;
// a zero denominator always yields 0.
type RegistrationStats struct {
	TotalRegistrations      int            `json:"total_registrations"`
	VerifiedRegistrations   int            `json:"verified_registrations"`
	ContactedRegistrations  int            `json:"contacted_registrations"`
	RegistrationsLast30Days int            `json:"registrations_last_30_days"`
	AverageAge              float64        `json:"average_age"`
	UniqueSchools           int            `json:"unique_schools"`
	VerificationRate        float64        `json:"verification_rate"`
	ContactRate             float64        `json:"contact_rate"`
	GrowthPercentage        float64        `json:"growth_percentage"`
	AgeGroups               AgeGroupCounts `json:"age_groups"`
}

// BreakdownEntry is one row of a count-by-category aggregation, ordered by
// count descending.
type BreakdownEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AgeCount is the number of active registrations for one discrete age value.
type AgeCount struct {
	Age   int `json:"age"`
	Count int `json:"count"`
}

// DailyCount is the number of registrations created on one calendar date.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// AnalyticsBundle is the full aggregation payload served by GET /v1/analytics.
type AnalyticsBundle struct {
	RegistrationStats
	ExperienceBreakdown []BreakdownEntry `json:"experience_breakdown"`
	LocationBreakdown   []BreakdownEntry `json:"location_breakdown"`
	SchoolBreakdown     []BreakdownEntry `json:"school_breakdown"`
	InterestBreakdown   []BreakdownEntry `json:"interest_breakdown"`
	AgeDistribution     []AgeCount       `json:"age_distribution"`
	DailyRegistrations  []DailyCount     `json:"daily_registrations"`
}

// StatsRow is the raw single-pass aggregate over active registrations, before
// derived rates are computed.
type StatsRow struct {
	Total      int
	Verified   int
	Contacted  int
	Last30Days int
	AverageAge float64
	Schools    int
	AgeGroups  AgeGroupCounts
}

// AnalyticsRepository defines the aggregate queries over the registration
// store. Implementations must aggregate in the database, not by materializing
// rows in memory.
type AnalyticsRepository interface {
	// StatsRow computes the base statistics in a single aggregate pass over
	// active registrations. since is the lower bound for the recent count.
	StatsRow(ctx context.Context, since time.Time) (*StatsRow, error)
	// CountCreatedBetween counts active registrations created in [from, to).
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
	ExperienceBreakdown(ctx context.Context) ([]BreakdownEntry, error)
	LocationBreakdown(ctx context.Context, limit int) ([]BreakdownEntry, error)
	SchoolBreakdown(ctx context.Context, limit int) ([]BreakdownEntry, error)
	// InterestBreakdown counts interest values across records; one record
	// contributes to every interest bucket it carries.
	InterestBreakdown(ctx context.Context, limit int) ([]BreakdownEntry, error)
	AgeDistribution(ctx context.Context) ([]AgeCount, error)
	// DailyCounts returns per-date creation counts for active registrations
	// created on or after from. Dates with no activity are absent; callers
	// zero-fill.
	DailyCounts(ctx context.Context, from time.Time) (map[string]int, error)
	// UpsertDailySnapshot recomputes and stores the snapshot row for the given
	// date from the registration store. Idempotent.
	UpsertDailySnapshot(ctx context.Context, date time.Time) error
}

// AnalyticsService serves cached statistics and the analytics bundle.
type AnalyticsService interface {
	GetStats(ctx context.Context) (*RegistrationStats, error)
	GetAnalytics(ctx context.Context) (*AnalyticsBundle, error)
	// GetRecentCount returns the number of active registrations created in the
	// last 30 days, cached on a short TTL for dashboard badges.
	GetRecentCount(ctx context.Context) (int, error)
	GetDailyRegistrations(ctx context.Context, days int) ([]DailyCount, error)
}
