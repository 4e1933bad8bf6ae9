package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"agriregistration/internal/cache"
	"agriregistration/internal/domain"
)

const (
	recentWindowDays = 30
	locationTopLimit = 15
	schoolTopLimit   = 15
	interestTopLimit = 10
)

type analyticsService struct {
	repo  domain.AnalyticsRepository
	cache *cache.Store

	now func() time.Time
}

// NewAnalyticsService creates an AnalyticsService backed by aggregate queries
// and the shared cache.
func NewAnalyticsService(repo domain.AnalyticsRepository, cacheStore *cache.Store) domain.AnalyticsService {
	return &analyticsService{
		repo:  repo,
		cache: cacheStore,
		now:   time.Now,
	}
}

func (s *analyticsService) GetStats(ctx context.Context) (*domain.RegistrationStats, error) {
	if stats, ok := cache.Get[*domain.RegistrationStats](s.cache, cache.RegionStats); ok {
		return stats, nil
	}
	stats, err := s.computeStats(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.RegionStats, stats)
	return stats, nil
}

func (s *analyticsService) computeStats(ctx context.Context) (*domain.RegistrationStats, error) {
	now := s.now()
	since := now.AddDate(0, 0, -recentWindowDays)

	row, err := s.repo.StatsRow(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("registration stats: %w", err)
	}

	previous, err := s.repo.CountCreatedBetween(ctx, now.AddDate(0, 0, -2*recentWindowDays), since)
	if err != nil {
		return nil, fmt.Errorf("previous period count: %w", err)
	}

	stats := &domain.RegistrationStats{
		TotalRegistrations:      row.Total,
		VerifiedRegistrations:   row.Verified,
		ContactedRegistrations:  row.Contacted,
		RegistrationsLast30Days: row.Last30Days,
		AverageAge:              round1(row.AverageAge),
		UniqueSchools:           row.Schools,
		AgeGroups:               row.AgeGroups,
	}
	// Rates and growth report 0 on a zero denominator, never an error.
	if row.Total > 0 {
		stats.VerificationRate = round1(float64(row.Verified) / float64(row.Total) * 100)
		stats.ContactRate = round1(float64(row.Contacted) / float64(row.Total) * 100)
	}
	if previous > 0 {
		stats.GrowthPercentage = round1(float64(row.Last30Days-previous) / float64(previous) * 100)
	}
	return stats, nil
}

func (s *analyticsService) GetAnalytics(ctx context.Context) (*domain.AnalyticsBundle, error) {
	if bundle, ok := cache.Get[*domain.AnalyticsBundle](s.cache, cache.RegionAnalytics); ok {
		return bundle, nil
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	experience, err := breakdownCached(s, cache.RegionExperienceBreakdown, func() ([]domain.BreakdownEntry, error) {
		return s.repo.ExperienceBreakdown(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("experience breakdown: %w", err)
	}
	locations, err := breakdownCached(s, cache.RegionLocationBreakdown, func() ([]domain.BreakdownEntry, error) {
		return s.repo.LocationBreakdown(ctx, locationTopLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("location breakdown: %w", err)
	}
	schools, err := breakdownCached(s, cache.RegionSchoolBreakdown, func() ([]domain.BreakdownEntry, error) {
		return s.repo.SchoolBreakdown(ctx, schoolTopLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("school breakdown: %w", err)
	}
	interests, err := breakdownCached(s, cache.RegionInterestBreakdown, func() ([]domain.BreakdownEntry, error) {
		return s.repo.InterestBreakdown(ctx, interestTopLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("interest breakdown: %w", err)
	}

	ages, err := s.ageDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("age distribution: %w", err)
	}
	daily, err := s.GetDailyRegistrations(ctx, recentWindowDays)
	if err != nil {
		return nil, fmt.Errorf("daily registrations: %w", err)
	}

	bundle := &domain.AnalyticsBundle{
		RegistrationStats:   *stats,
		ExperienceBreakdown: experience,
		LocationBreakdown:   locations,
		SchoolBreakdown:     schools,
		InterestBreakdown:   interests,
		AgeDistribution:     ages,
		DailyRegistrations:  daily,
	}
	s.cache.Set(cache.RegionAnalytics, bundle)
	return bundle, nil
}

func (s *analyticsService) GetRecentCount(ctx context.Context) (int, error) {
	if count, ok := cache.Get[int](s.cache, cache.RegionRecentCount); ok {
		return count, nil
	}
	now := s.now()
	count, err := s.repo.CountCreatedBetween(ctx, now.AddDate(0, 0, -recentWindowDays), now)
	if err != nil {
		return 0, fmt.Errorf("recent count: %w", err)
	}
	s.cache.Set(cache.RegionRecentCount, count)
	return count, nil
}

// GetDailyRegistrations returns one entry per calendar date for the last days
// days, zero-filled and ordered chronologically.
func (s *analyticsService) GetDailyRegistrations(ctx context.Context, days int) ([]domain.DailyCount, error) {
	if days == recentWindowDays {
		if series, ok := cache.Get[[]domain.DailyCount](s.cache, cache.RegionDailyRegistrations); ok {
			return series, nil
		}
	}

	// Midnight in the clock's zone, not a UTC truncation, so the series
	// lines up with the dates Format renders.
	now := s.now()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, -(days - 1))
	counts, err := s.repo.DailyCounts(ctx, from)
	if err != nil {
		return nil, err
	}

	series := make([]domain.DailyCount, 0, days)
	for d := 0; d < days; d++ {
		date := from.AddDate(0, 0, d).Format("2006-01-02")
		series = append(series, domain.DailyCount{Date: date, Count: counts[date]})
	}

	if days == recentWindowDays {
		s.cache.Set(cache.RegionDailyRegistrations, series)
	}
	return series, nil
}

func (s *analyticsService) ageDistribution(ctx context.Context) ([]domain.AgeCount, error) {
	if dist, ok := cache.Get[[]domain.AgeCount](s.cache, cache.RegionAgeDistribution); ok {
		return dist, nil
	}
	dist, err := s.repo.AgeDistribution(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.RegionAgeDistribution, dist)
	return dist, nil
}

// breakdownCached is read-through caching for one breakdown region.
func breakdownCached(s *analyticsService, region cache.Region, compute func() ([]domain.BreakdownEntry, error)) ([]domain.BreakdownEntry, error) {
	if entries, ok := cache.Get[[]domain.BreakdownEntry](s.cache, region); ok {
		return entries, nil
	}
	entries, err := compute()
	if err != nil {
		return nil, err
	}
	s.cache.Set(region, entries)
	return entries, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
