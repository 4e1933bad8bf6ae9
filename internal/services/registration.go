package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agriregistration/internal/cache"
	"agriregistration/internal/domain"
)

type registrationService struct {
	repo          domain.RegistrationRepository
	analyticsRepo domain.AnalyticsRepository
	cache         *cache.Store
	emails        domain.EmailService
	logger        *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewRegistrationService creates a RegistrationService. emails may be nil when
// no confirmation mail should be sent.
func NewRegistrationService(
	repo domain.RegistrationRepository,
	analyticsRepo domain.AnalyticsRepository,
	cacheStore *cache.Store,
	emails domain.EmailService,
	logger *slog.Logger,
) domain.RegistrationService {
	return &registrationService{
		repo:          repo,
		analyticsRepo: analyticsRepo,
		cache:         cacheStore,
		emails:        emails,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *registrationService) Register(ctx context.Context, input *domain.NewRegistrationInput) (*domain.Registration, error) {
	if err := validateInput(input, s.now()); err != nil {
		return nil, err
	}

	now := s.now()
	reg := &domain.Registration{
		ID:              uuid.NewString(),
		FirstName:       domain.NormalizeName(input.FirstName),
		LastName:        domain.NormalizeName(input.LastName),
		Email:           domain.NormalizeEmail(input.Email),
		Phone:           domain.NormalizePhone(input.Phone),
		Location:        input.Location,
		Age:             input.Age,
		DateOfBirth:     input.DateOfBirth,
		SchoolName:      input.SchoolName,
		ParentName:      input.ParentName,
		ParentPhone:     input.ParentPhone,
		ParentEmail:     input.ParentEmail,
		ExperienceLevel: input.ExperienceLevel,
		Interests:       input.Interests,
		Motivation:      input.Motivation,
		IsActive:        true,
		IsVerified:      false,
		IsContacted:     false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.IPAddress != "" {
		reg.IPAddress = &input.IPAddress
	}
	if input.UserAgent != "" {
		reg.UserAgent = &input.UserAgent
	}

	if err := s.repo.Create(ctx, reg); err != nil {
		if err == domain.ErrDuplicateEmail {
			ve := domain.NewValidationError()
			ve.Add("email", domain.ErrDuplicateEmail.Error())
			return nil, ve
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.cache.OnRegistrationCreated()

	// The daily snapshot and the confirmation email run off the request's
	// critical path; the response never waits for either.
	go s.upsertTodaySnapshot(reg.CreatedAt)
	if s.emails != nil {
		go s.sendConfirmation(reg)
	}

	s.logger.InfoContext(ctx, "new student registration",
		"student_id", reg.ID,
		"email", reg.Email,
		"school", deref(reg.SchoolName),
	)
	return reg, nil
}

func (s *registrationService) upsertTodaySnapshot(date time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.analyticsRepo.UpsertDailySnapshot(ctx, date); err != nil {
		s.logger.Error("daily analytics upsert failed", "date", date.Format("2006-01-02"), "err", err)
	}
}

func (s *registrationService) sendConfirmation(reg *domain.Registration) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := s.emails.SendRegistrationConfirmation(ctx, &domain.RegistrationConfirmationEmailData{
		Email:     reg.Email,
		FirstName: reg.FirstName,
	})
	if err != nil {
		s.logger.Error("confirmation email failed", "student_id", reg.ID, "err", err)
	}
}

func (s *registrationService) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	// The id column is UUID-typed; a malformed id would surface as a
	// Postgres cast error rather than a clean miss.
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *registrationService) List(ctx context.Context, filter domain.RegistrationFilter, page domain.PaginationParams) (*domain.RegistrationPage, error) {
	regs, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	totalPages := 0
	if page.PageSize > 0 {
		totalPages = (total + page.PageSize - 1) / page.PageSize
	}
	return &domain.RegistrationPage{
		Items:      regs,
		Page:       page.Page,
		PerPage:    page.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (s *registrationService) ListByCursor(ctx context.Context, filter domain.RegistrationFilter, cursor string, limit int) (*domain.RegistrationPage, error) {
	c, err := decodeCursor(cursor)
	if err != nil {
		ve := domain.NewValidationError()
		ve.Add("cursor", "invalid cursor")
		return nil, ve
	}

	regs, next, err := s.repo.ListAfter(ctx, filter, c, limit)
	if err != nil {
		return nil, fmt.Errorf("list registrations after cursor: %w", err)
	}
	return &domain.RegistrationPage{
		Items:      regs,
		PerPage:    limit,
		NextCursor: encodeCursor(next),
	}, nil
}

func (s *registrationService) MarkVerified(ctx context.Context, id string) (*domain.Registration, error) {
	return s.markFlag(ctx, id, s.repo.MarkVerified)
}

func (s *registrationService) MarkContacted(ctx context.Context, id string) (*domain.Registration, error) {
	return s.markFlag(ctx, id, s.repo.MarkContacted)
}

func (s *registrationService) markFlag(ctx context.Context, id string, mark func(context.Context, string) error) (*domain.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	if err := mark(ctx, id); err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update status flag: %w", err)
	}

	s.cache.OnStatusChanged()

	reg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload registration: %w", err)
	}
	return reg, nil
}

// MaxBulkIDs bounds a single bulk status operation.
const MaxBulkIDs = 100

func (s *registrationService) BulkMarkVerified(ctx context.Context, ids []string) (int64, error) {
	return s.bulkMark(ctx, ids, s.repo.BulkMarkVerified)
}

func (s *registrationService) BulkMarkContacted(ctx context.Context, ids []string) (int64, error) {
	return s.bulkMark(ctx, ids, s.repo.BulkMarkContacted)
}

func (s *registrationService) bulkMark(ctx context.Context, ids []string, bulk func(context.Context, []string) (int64, error)) (int64, error) {
	ve := domain.NewValidationError()
	switch {
	case len(ids) == 0:
		ve.Add("student_ids", "student_ids is required")
	case len(ids) > MaxBulkIDs:
		ve.Add("student_ids", fmt.Sprintf("student_ids may contain at most %d entries", MaxBulkIDs))
	default:
		for _, id := range ids {
			if _, err := uuid.Parse(id); err != nil {
				ve.Add("student_ids", fmt.Sprintf("%q is not a valid student id", id))
				break
			}
		}
	}
	if ve.HasErrors() {
		return 0, ve
	}

	existing, err := s.repo.CountExisting(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check bulk ids: %w", err)
	}
	if existing != len(uniqueIDs(ids)) {
		ve.Add("student_ids", "one or more student ids do not reference an existing registration")
		return 0, ve
	}

	updated, err := bulk(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk status update: %w", err)
	}

	s.cache.OnStatusChanged()
	return updated, nil
}

func (s *registrationService) SchoolOptions(ctx context.Context) ([]string, error) {
	if schools, ok := cache.Get[[]string](s.cache, cache.RegionSchoolOptions); ok {
		return schools, nil
	}
	schools, err := s.repo.DistinctSchools(ctx)
	if err != nil {
		return nil, fmt.Errorf("distinct schools: %w", err)
	}
	s.cache.Set(cache.RegionSchoolOptions, schools)
	return schools, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// validateInput enforces the business invariants the repository cannot: a
// known experience level, the interest vocabulary and cardinality bound, and
// agreement between age and date of birth within one year.
func validateInput(input *domain.NewRegistrationInput, now time.Time) error {
	ve := domain.NewValidationError()

	if !domain.IsValidExperienceLevel(input.ExperienceLevel) {
		ve.Add("experience_level", "please select a valid experience level")
	}
	if len(input.Interests) > domain.MaxInterests {
		ve.Add("interests", fmt.Sprintf("at most %d interests may be selected", domain.MaxInterests))
	}
	for _, interest := range input.Interests {
		if !domain.IsValidInterest(interest) {
			ve.Add("interests", "one or more selected interests are not valid")
			break
		}
	}
	if input.Age != nil && input.DateOfBirth != nil {
		derived := yearsBetween(*input.DateOfBirth, now)
		if diff := *input.Age - derived; diff < -1 || diff > 1 {
			ve.Add("age", "age does not match date of birth")
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	anniversary := from.AddDate(years, 0, 0)
	if anniversary.After(to) {
		years--
	}
	return years
}

func encodeCursor(c domain.Cursor) string {
	if c.IsZero() {
		return ""
	}
	b, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (domain.Cursor, error) {
	if s == "" {
		return domain.Cursor{}, nil
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return domain.Cursor{}, err
	}
	var c domain.Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.Cursor{}, err
	}
	return c, nil
}
