package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsRepository_StatsRow(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT(.|\n)*FROM student_registrations(.|\n)*WHERE is_active = TRUE`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "verified", "contacted", "recent", "avg", "schools",
			"child", "teen", "young_adult", "adult", "mature",
		}).AddRow(100, 40, 25, 12, 17.5, 8, 5, 40, 30, 15, 10))

	repo := NewAnalyticsRepository(db)
	row, err := repo.StatsRow(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, 100, row.Total)
	assert.Equal(t, 40, row.Verified)
	assert.Equal(t, 25, row.Contacted)
	assert.Equal(t, 12, row.Last30Days)
	assert.InDelta(t, 17.5, row.AverageAge, 0.001)
	assert.Equal(t, 8, row.Schools)
	// Buckets partition the active set.
	assert.Equal(t, row.Total, row.AgeGroups.Sum())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepository_ExperienceBreakdown(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT experience_level, COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"experience_level", "count"}).
			AddRow("beginner", 60).
			AddRow("professional", 7))

	repo := NewAnalyticsRepository(db)
	entries, err := repo.ExperienceBreakdown(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Beginner - New to farming", entries[0].Label)
	assert.Equal(t, 60, entries[0].Count)
	assert.Equal(t, "Professional - Agricultural professional", entries[1].Label)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepository_InterestBreakdown(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`jsonb_array_elements_text`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"interest", "count"}).
			AddRow("Crop Production", 34).
			AddRow("Beekeeping", 12))

	repo := NewAnalyticsRepository(db)
	entries, err := repo.InterestBreakdown(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Crop Production", entries[0].Label)
	assert.Equal(t, 34, entries[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepository_DailyCounts(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT created_at::date AS day`).
		WithArgs(from).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), 3).
			AddRow(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), 5))

	repo := NewAnalyticsRepository(db)
	counts, err := repo.DailyCounts(ctx, from)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2026-07-30": 3, "2026-08-01": 5}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepository_UpsertDailySnapshot(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO registration_analytics(.|\n)*ON CONFLICT \(date\) DO UPDATE`).
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAnalyticsRepository(db)
	require.NoError(t, repo.UpsertDailySnapshot(ctx, date))
	require.NoError(t, mock.ExpectationsWereMet())
}
