package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"agriregistration/internal/domain"
)

// registrationColumns is the select list shared by every read query.
const registrationColumns = `
	id, first_name, last_name, email, phone, location,
	age, date_of_birth, school_name, parent_name, parent_phone, parent_email,
	experience_level, interests, motivation, ip_address, user_agent,
	is_active, is_verified, is_contacted, created_at, updated_at`

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	interests, err := marshalInterests(reg.Interests)
	if err != nil {
		return fmt.Errorf("marshal interests: %w", err)
	}

	// The insert runs in a transaction so a mid-write failure leaves no
	// partial record, provenance included.
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO student_registrations (
			id, first_name, last_name, email, phone, location,
			age, date_of_birth, school_name, parent_name, parent_phone, parent_email,
			experience_level, interests, motivation, ip_address, user_agent,
			is_active, is_verified, is_contacted, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err = tx.ExecContext(ctx, query,
		reg.ID, reg.FirstName, reg.LastName, reg.Email, reg.Phone, reg.Location,
		reg.Age, reg.DateOfBirth, reg.SchoolName, reg.ParentName, reg.ParentPhone, reg.ParentEmail,
		reg.ExperienceLevel, interests, reg.Motivation, reg.IPAddress, reg.UserAgent,
		reg.IsActive, reg.IsVerified, reg.IsContacted, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return tx.Commit()
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT` + registrationColumns + `
		FROM student_registrations
		WHERE id = $1
	`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) List(ctx context.Context, filter domain.RegistrationFilter, page domain.PaginationParams) ([]*domain.Registration, int, error) {
	where, args := buildFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM student_registrations WHERE ` + where
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT%s
		FROM student_registrations
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		registrationColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	regs, err := r.queryRegistrations(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

func (r *registrationRepository) ListAfter(ctx context.Context, filter domain.RegistrationFilter, cursor domain.Cursor, limit int) ([]*domain.Registration, domain.Cursor, error) {
	where, args := buildFilter(filter)

	if !cursor.IsZero() {
		where += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)+1, len(args)+2)
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	// Fetch one extra row to learn whether another page exists.
	query := fmt.Sprintf(`SELECT%s
		FROM student_registrations
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`,
		registrationColumns, where, len(args)+1)
	args = append(args, limit+1)

	regs, err := r.queryRegistrations(ctx, query, args...)
	if err != nil {
		return nil, domain.Cursor{}, err
	}

	var next domain.Cursor
	if len(regs) > limit {
		regs = regs[:limit]
		last := regs[len(regs)-1]
		next = domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return regs, next, nil
}

func (r *registrationRepository) ListAll(ctx context.Context, filter domain.RegistrationFilter) ([]*domain.Registration, error) {
	where, args := buildFilter(filter)
	query := `SELECT` + registrationColumns + `
		FROM student_registrations
		WHERE ` + where + `
		ORDER BY created_at DESC, id DESC
	`
	return r.queryRegistrations(ctx, query, args...)
}

func (r *registrationRepository) MarkVerified(ctx context.Context, id string) error {
	return r.setFlag(ctx, "is_verified", id)
}

func (r *registrationRepository) MarkContacted(ctx context.Context, id string) error {
	return r.setFlag(ctx, "is_contacted", id)
}

// setFlag flips one status column to true. Updating an already-true row still
// affects it, so zero rows means the id does not exist.
func (r *registrationRepository) setFlag(ctx context.Context, column, id string) error {
	query := fmt.Sprintf(`
		UPDATE student_registrations
		SET %s = TRUE, updated_at = now()
		WHERE id = $1
	`, column)
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) BulkMarkVerified(ctx context.Context, ids []string) (int64, error) {
	return r.bulkSetFlag(ctx, "is_verified", ids)
}

func (r *registrationRepository) BulkMarkContacted(ctx context.Context, ids []string) (int64, error) {
	return r.bulkSetFlag(ctx, "is_contacted", ids)
}

// bulkSetFlag runs one set-based update over all ids, skipping rows that
// already carry the flag so the reported count reflects actual changes.
func (r *registrationRepository) bulkSetFlag(ctx context.Context, column string, ids []string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE student_registrations
		SET %s = TRUE, updated_at = now()
		WHERE id = ANY($1::uuid[]) AND %s = FALSE
	`, column, column)
	res, err := r.DB.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *registrationRepository) CountExisting(ctx context.Context, ids []string) (int, error) {
	query := `SELECT COUNT(*) FROM student_registrations WHERE id = ANY($1::uuid[])`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, pq.Array(ids)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *registrationRepository) DistinctSchools(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT school_name
		FROM student_registrations
		WHERE is_active = TRUE AND school_name IS NOT NULL AND school_name <> ''
		ORDER BY school_name ASC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schools := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		schools = append(schools, s)
	}
	return schools, rows.Err()
}

func (r *registrationRepository) queryRegistrations(ctx context.Context, query string, args ...any) ([]*domain.Registration, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// buildFilter composes the optional filters conjunctively into a WHERE clause
// with positional args. Every query is restricted to active records.
func buildFilter(f domain.RegistrationFilter) (string, []any) {
	clauses := []string{"is_active = TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Experience != "" {
		clauses = append(clauses, "experience_level = "+arg(f.Experience))
	}
	if f.Location != "" {
		clauses = append(clauses, "location ILIKE "+arg("%"+f.Location+"%"))
	}
	if f.Verified != nil {
		clauses = append(clauses, "is_verified = "+arg(*f.Verified))
	}
	if f.Contacted != nil {
		clauses = append(clauses, "is_contacted = "+arg(*f.Contacted))
	}
	if f.AgeFrom != nil {
		clauses = append(clauses, "age >= "+arg(*f.AgeFrom))
	}
	if f.AgeTo != nil {
		clauses = append(clauses, "age <= "+arg(*f.AgeTo))
	}
	if f.School != "" {
		clauses = append(clauses, "school_name ILIKE "+arg("%"+f.School+"%"))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		clauses = append(clauses, fmt.Sprintf(`(
			first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR email ILIKE %[1]s
			OR parent_name ILIKE %[1]s OR parent_email ILIKE %[1]s
			OR school_name ILIKE %[1]s OR location ILIKE %[1]s
		)`, p))
	}

	return strings.Join(clauses, " AND "), args
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var (
		age         sql.NullInt64
		dob         sql.NullTime
		school      sql.NullString
		parentName  sql.NullString
		parentPhone sql.NullString
		parentEmail sql.NullString
		interests   []byte
		motivation  sql.NullString
		ipAddress   sql.NullString
		userAgent   sql.NullString
	)
	err := row.Scan(
		&reg.ID, &reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone, &reg.Location,
		&age, &dob, &school, &parentName, &parentPhone, &parentEmail,
		&reg.ExperienceLevel, &interests, &motivation, &ipAddress, &userAgent,
		&reg.IsActive, &reg.IsVerified, &reg.IsContacted, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		v := int(age.Int64)
		reg.Age = &v
	}
	if dob.Valid {
		v := dob.Time
		reg.DateOfBirth = &v
	}
	reg.SchoolName = nullableString(school)
	reg.ParentName = nullableString(parentName)
	reg.ParentPhone = nullableString(parentPhone)
	reg.ParentEmail = nullableString(parentEmail)
	reg.Motivation = nullableString(motivation)
	reg.IPAddress = nullableString(ipAddress)
	reg.UserAgent = nullableString(userAgent)

	reg.Interests = []string{}
	if len(interests) > 0 {
		if err := json.Unmarshal(interests, &reg.Interests); err != nil {
			return nil, fmt.Errorf("unmarshal interests: %w", err)
		}
	}
	return reg, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// marshalInterests encodes the interest list as JSON, or NULL when empty.
func marshalInterests(interests []string) (any, error) {
	if len(interests) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(interests)
	if err != nil {
		return nil, err
	}
	return b, nil
}
