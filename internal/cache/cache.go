// Package cache is the process-wide TTL cache in front of the aggregation
// layer. Keys are drawn from a fixed region registry so invalidation can never
// miss a key through a typo, and invalidation is forget-only: a write event
// deletes regions outright and the next reader recomputes.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Region names one cached value. The cache is not a source of truth: every
// region can be recomputed from the registration store at any time.
type Region string

const (
	RegionStats               Region = "registration_stats"
	RegionAnalytics           Region = "registration_analytics"
	RegionRecentCount         Region = "recent_registrations_count"
	RegionSchoolOptions       Region = "school_options"
	RegionExperienceBreakdown Region = "experience_breakdown"
	RegionLocationBreakdown   Region = "location_breakdown"
	RegionSchoolBreakdown     Region = "school_breakdown"
	RegionAgeDistribution     Region = "age_distribution"
	RegionInterestBreakdown   Region = "interest_breakdown"
	RegionDailyRegistrations  Region = "daily_registrations_30"
)

const (
	statsTTL      = time.Hour
	analyticsTTL  = 2 * time.Hour
	badgeTTL      = 5 * time.Minute
	optionListTTL = time.Hour
	breakdownTTL  = time.Hour
	cleanupEvery  = 10 * time.Minute
)

// regionTTLs fixes the TTL per region.
var regionTTLs = map[Region]time.Duration{
	RegionStats:               statsTTL,
	RegionAnalytics:           analyticsTTL,
	RegionRecentCount:         badgeTTL,
	RegionSchoolOptions:       optionListTTL,
	RegionExperienceBreakdown: breakdownTTL,
	RegionLocationBreakdown:   breakdownTTL,
	RegionSchoolBreakdown:     breakdownTTL,
	RegionAgeDistribution:     breakdownTTL,
	RegionInterestBreakdown:   breakdownTTL,
	RegionDailyRegistrations:  breakdownTTL,
}

// allRegions lists every region, for full invalidation.
var allRegions = []Region{
	RegionStats,
	RegionAnalytics,
	RegionRecentCount,
	RegionSchoolOptions,
	RegionExperienceBreakdown,
	RegionLocationBreakdown,
	RegionSchoolBreakdown,
	RegionAgeDistribution,
	RegionInterestBreakdown,
	RegionDailyRegistrations,
}

// statusRegions are the regions invalidated when a status flag flips: only
// the stats-bearing values change, breakdowns and option lists do not.
var statusRegions = []Region{
	RegionStats,
	RegionAnalytics,
	RegionRecentCount,
}

// Store is a process-wide key-value cache with per-region TTLs. Entries are
// lost on restart. Safe for concurrent use; simultaneous misses may recompute
// the same value twice, which is acceptable because population is idempotent.
type Store struct {
	c *gocache.Cache
}

// New returns an empty Store.
func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, cleanupEvery)}
}

// Get retrieves the value for a region and whether it was present and typed
// correctly.
func Get[V any](s *Store, region Region) (V, bool) {
	var zero V
	value, found := s.c.Get(string(region))
	if !found {
		return zero, false
	}
	v, ok := value.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value under the region with the region's fixed TTL.
func (s *Store) Set(region Region, value any) {
	ttl, ok := regionTTLs[region]
	if !ok {
		ttl = time.Hour
	}
	s.c.Set(string(region), value, ttl)
}

// Forget deletes the given regions outright.
func (s *Store) Forget(regions ...Region) {
	for _, r := range regions {
		s.c.Delete(string(r))
	}
}

// OnRegistrationCreated invalidates every region: a new record shifts stats,
// breakdowns, daily series, and the school option list alike.
func (s *Store) OnRegistrationCreated() {
	s.Forget(allRegions...)
}

// OnStatusChanged invalidates the stats-bearing regions after a verified or
// contacted flag flips, individually or in bulk.
func (s *Store) OnStatusChanged() {
	s.Forget(statusRegions...)
}
