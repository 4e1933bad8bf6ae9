package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"agriregistration/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func registrationRowColumns() []string {
	return []string{
		"id", "first_name", "last_name", "email", "phone", "location",
		"age", "date_of_birth", "school_name", "parent_name", "parent_phone", "parent_email",
		"experience_level", "interests", "motivation", "ip_address", "user_agent",
		"is_active", "is_verified", "is_contacted", "created_at", "updated_at",
	}
}

func sampleRegistrationRow(rows *sqlmock.Rows, id string, createdAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "Ama", "Mensah", "ama@example.com", "+233201234567", "Accra",
		16, time.Date(2009, 3, 12, 0, 0, 0, 0, time.UTC), "Accra High", "Kofi Mensah", "+233209876543", "kofi@example.com",
		"beginner", []byte(`["Crop Production","Beekeeping"]`), "I love farming", "10.0.0.1", "curl/8.0",
		true, false, false, createdAt, createdAt,
	)
}

func TestRegistrationRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	reg := &domain.Registration{
		ID:              "c0a80121-7ac0-4e1c-9b5d-1db5f1bda9ad",
		FirstName:       "Ama",
		LastName:        "Mensah",
		Email:           "ama@example.com",
		Phone:           "+233201234567",
		Location:        "Accra",
		Age:             intPtr(16),
		ExperienceLevel: "beginner",
		Interests:       []string{"Crop Production"},
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO student_registrations`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "unique violation returns ErrDuplicateEmail",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO student_registrations`).
					WillReturnError(&pq.Error{Code: "23505"})
				mock.ExpectRollback()
			},
			wantErr: true,
			errIs:   domain.ErrDuplicateEmail,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO student_registrations`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			err = repo.Create(ctx, reg)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
		rows := sampleRegistrationRow(sqlmock.NewRows(registrationRowColumns()), "reg-1", created)
		mock.ExpectQuery(`SELECT(.|\n)*FROM student_registrations(.|\n)*WHERE id = \$1`).
			WithArgs("reg-1").
			WillReturnRows(rows)

		repo := NewRegistrationRepository(db)
		reg, err := repo.GetByID(ctx, "reg-1")
		require.NoError(t, err)
		assert.Equal(t, "Ama", reg.FirstName)
		assert.Equal(t, []string{"Crop Production", "Beekeeping"}, reg.Interests)
		require.NotNil(t, reg.Age)
		assert.Equal(t, 16, *reg.Age)
		require.NotNil(t, reg.IPAddress)
		assert.Equal(t, "10.0.0.1", *reg.IPAddress)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT(.|\n)*FROM student_registrations`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		repo := NewRegistrationRepository(db)
		_, err = repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_List(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM student_registrations WHERE is_active = TRUE AND experience_level = \$1`).
		WithArgs("beginner").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	rows := sampleRegistrationRow(sqlmock.NewRows(registrationRowColumns()), "reg-1", created)
	mock.ExpectQuery(`SELECT(.|\n)*FROM student_registrations(.|\n)*ORDER BY created_at DESC`).
		WithArgs("beginner", 20, 0).
		WillReturnRows(rows)

	repo := NewRegistrationRepository(db)
	regs, total, err := repo.List(ctx,
		domain.RegistrationFilter{Experience: "beginner"},
		domain.PaginationParams{Page: 1, PageSize: 20},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, regs, 1)
	assert.Equal(t, "reg-1", regs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_ListAfter(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(registrationRowColumns())
	sampleRegistrationRow(rows, "reg-1", created)
	sampleRegistrationRow(rows, "reg-2", created.Add(-time.Hour))
	sampleRegistrationRow(rows, "reg-3", created.Add(-2*time.Hour))

	// limit+1 rows returned means another page exists.
	mock.ExpectQuery(`SELECT(.|\n)*FROM student_registrations(.|\n)*LIMIT \$1`).
		WithArgs(3).
		WillReturnRows(rows)

	repo := NewRegistrationRepository(db)
	regs, next, err := repo.ListAfter(ctx, domain.RegistrationFilter{}, domain.Cursor{}, 2)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "reg-2", next.ID)
	assert.False(t, next.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_MarkVerified(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE student_registrations`).
					WithArgs("reg-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not found zero rows affected",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE student_registrations`).
					WithArgs("reg-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			err = repo.MarkVerified(ctx, "reg-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_BulkMarkContacted(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ids := []string{"id-1", "id-2", "id-3"}
	mock.ExpectExec(`UPDATE student_registrations(.|\n)*is_contacted = FALSE`).
		WithArgs(pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewRegistrationRepository(db)
	updated, err := repo.BulkMarkContacted(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_DistinctSchools(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT school_name`).
		WillReturnRows(sqlmock.NewRows([]string{"school_name"}).
			AddRow("Accra High").
			AddRow("Kumasi Academy"))

	repo := NewRegistrationRepository(db)
	schools, err := repo.DistinctSchools(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Accra High", "Kumasi Academy"}, schools)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name       string
		filter     domain.RegistrationFilter
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "no filters only active",
			filter:     domain.RegistrationFilter{},
			wantClause: "is_active = TRUE",
			wantArgs:   []any{},
		},
		{
			name: "all filters compose conjunctively",
			filter: domain.RegistrationFilter{
				Experience: "advanced",
				Location:   "Kumasi",
				Verified:   boolPtr(true),
				Contacted:  boolPtr(false),
				AgeFrom:    intPtr(13),
				AgeTo:      intPtr(17),
				School:     "Academy",
			},
			wantClause: "is_active = TRUE AND experience_level = $1 AND location ILIKE $2" +
				" AND is_verified = $3 AND is_contacted = $4 AND age >= $5 AND age <= $6" +
				" AND school_name ILIKE $7",
			wantArgs: []any{"advanced", "%Kumasi%", true, false, 13, 17, "%Academy%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := buildFilter(tt.filter)
			assert.Equal(t, tt.wantClause, clause)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildFilter_Search(t *testing.T) {
	clause, args := buildFilter(domain.RegistrationFilter{Search: "mensah"})
	assert.Contains(t, clause, "first_name ILIKE $1")
	assert.Contains(t, clause, "parent_email ILIKE $1")
	assert.Contains(t, clause, "location ILIKE $1")
	assert.Equal(t, []any{"%mensah%"}, args)
}
