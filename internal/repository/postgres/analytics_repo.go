package postgres

import (
	"context"
	"database/sql"
	"time"

	"agriregistration/internal/domain"
)

type analyticsRepository struct {
	DB *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) domain.AnalyticsRepository {
	return &analyticsRepository{
		DB: db,
	}
}

// StatsRow computes the full base-statistics block in one aggregate pass over
// the active subset using FILTER clauses. Rows without an age land in the last
// age bucket so the buckets partition the active set exactly.
func (r *analyticsRepository) StatsRow(ctx context.Context, since time.Time) (*domain.StatsRow, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE is_contacted),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COALESCE(AVG(age), 0),
			COUNT(DISTINCT school_name) FILTER (WHERE school_name IS NOT NULL AND school_name <> ''),
			COUNT(*) FILTER (WHERE age <= 12),
			COUNT(*) FILTER (WHERE age BETWEEN 13 AND 17),
			COUNT(*) FILTER (WHERE age BETWEEN 18 AND 25),
			COUNT(*) FILTER (WHERE age BETWEEN 26 AND 35),
			COUNT(*) FILTER (WHERE age >= 36 OR age IS NULL)
		FROM student_registrations
		WHERE is_active = TRUE
	`
	row := &domain.StatsRow{}
	err := r.DB.QueryRowContext(ctx, query, since).Scan(
		&row.Total, &row.Verified, &row.Contacted, &row.Last30Days,
		&row.AverageAge, &row.Schools,
		&row.AgeGroups.Child, &row.AgeGroups.Teen, &row.AgeGroups.YoungAdult,
		&row.AgeGroups.Adult, &row.AgeGroups.MatureAdult,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *analyticsRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM student_registrations
		WHERE is_active = TRUE AND created_at >= $1 AND created_at < $2
	`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *analyticsRepository) ExperienceBreakdown(ctx context.Context) ([]domain.BreakdownEntry, error) {
	query := `
		SELECT experience_level, COUNT(*) AS count
		FROM student_registrations
		WHERE is_active = TRUE
		GROUP BY experience_level
		ORDER BY count DESC
	`
	entries, err := r.queryBreakdown(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Label = domain.ExperienceLevelLabel(entries[i].Label)
	}
	return entries, nil
}

func (r *analyticsRepository) LocationBreakdown(ctx context.Context, limit int) ([]domain.BreakdownEntry, error) {
	query := `
		SELECT location, COUNT(*) AS count
		FROM student_registrations
		WHERE is_active = TRUE
		GROUP BY location
		ORDER BY count DESC
		LIMIT $1
	`
	return r.queryBreakdown(ctx, query, limit)
}

func (r *analyticsRepository) SchoolBreakdown(ctx context.Context, limit int) ([]domain.BreakdownEntry, error) {
	query := `
		SELECT school_name, COUNT(*) AS count
		FROM student_registrations
		WHERE is_active = TRUE AND school_name IS NOT NULL AND school_name <> ''
		GROUP BY school_name
		ORDER BY count DESC
		LIMIT $1
	`
	return r.queryBreakdown(ctx, query, limit)
}

// InterestBreakdown unnests the interests array so one record counts toward
// every interest it carries.
func (r *analyticsRepository) InterestBreakdown(ctx context.Context, limit int) ([]domain.BreakdownEntry, error) {
	query := `
		SELECT interest, COUNT(*) AS count
		FROM student_registrations,
			jsonb_array_elements_text(interests) AS interest
		WHERE is_active = TRUE
		GROUP BY interest
		ORDER BY count DESC
		LIMIT $1
	`
	return r.queryBreakdown(ctx, query, limit)
}

func (r *analyticsRepository) AgeDistribution(ctx context.Context) ([]domain.AgeCount, error) {
	query := `
		SELECT age, COUNT(*) AS count
		FROM student_registrations
		WHERE is_active = TRUE AND age IS NOT NULL
		GROUP BY age
		ORDER BY age ASC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := []domain.AgeCount{}
	for rows.Next() {
		var ac domain.AgeCount
		if err := rows.Scan(&ac.Age, &ac.Count); err != nil {
			return nil, err
		}
		dist = append(dist, ac)
	}
	return dist, rows.Err()
}

func (r *analyticsRepository) DailyCounts(ctx context.Context, from time.Time) (map[string]int, error) {
	query := `
		SELECT created_at::date AS day, COUNT(*) AS count
		FROM student_registrations
		WHERE is_active = TRUE AND created_at >= $1
		GROUP BY day
		ORDER BY day ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		counts[day.Format("2006-01-02")] = count
	}
	return counts, rows.Err()
}

// UpsertDailySnapshot recomputes the snapshot for one date from the store
// rather than incrementing counters, so repeated runs can never drift.
func (r *analyticsRepository) UpsertDailySnapshot(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO registration_analytics
			(date, total_registrations, verified_registrations, contacted_registrations, created_at, updated_at)
		SELECT $1::date,
			COUNT(*),
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE is_contacted),
			now(), now()
		FROM student_registrations
		WHERE created_at::date = $1::date
		ON CONFLICT (date) DO UPDATE SET
			total_registrations = EXCLUDED.total_registrations,
			verified_registrations = EXCLUDED.verified_registrations,
			contacted_registrations = EXCLUDED.contacted_registrations,
			updated_at = now()
	`
	_, err := r.DB.ExecContext(ctx, query, date)
	return err
}

func (r *analyticsRepository) queryBreakdown(ctx context.Context, query string, args ...any) ([]domain.BreakdownEntry, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.BreakdownEntry{}
	for rows.Next() {
		var e domain.BreakdownEntry
		if err := rows.Scan(&e.Label, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
