package domain

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// Experience levels accepted for a registration, with their display labels.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceAdvanced     = "advanced"
	ExperienceProfessional = "professional"
)

// ExperienceLevels maps each experience level code to its display label.
var ExperienceLevels = map[string]string{
	ExperienceBeginner:     "Beginner - New to farming",
	ExperienceIntermediate: "Intermediate - Some farming experience",
	ExperienceAdvanced:     "Advanced - Experienced farmer",
	ExperienceProfessional: "Professional - Agricultural professional",
}

// ValidInterests is the allowed vocabulary for the interests field.
var ValidInterests = []string{
	"Crop Production",
	"Livestock Management",
	"Sustainable Farming",
	"Precision Agriculture",
	"Hydroponics",
	"Organic Farming",
	"Agricultural Technology",
	"Farm Business Management",
	"Poultry Farming",
	"Fish Farming",
	"Beekeeping",
	"Greenhouse Management",
}

// MaxInterests bounds how many interests one registration may carry.
const MaxInterests = 8

// ExperienceLevelLabel returns the display label for a level code, or the code
// itself when unknown.
func ExperienceLevelLabel(level string) string {
	if label, ok := ExperienceLevels[level]; ok {
		return label
	}
	return level
}

// IsValidExperienceLevel reports whether level is one of the accepted codes.
func IsValidExperienceLevel(level string) bool {
	_, ok := ExperienceLevels[level]
	return ok
}

// IsValidInterest reports whether interest belongs to the allowed vocabulary.
func IsValidInterest(interest string) bool {
	for _, v := range ValidInterests {
		if v == interest {
			return true
		}
	}
	return false
}

// Registration is one student sign-up for the training program.
// IPAddress and UserAgent are request provenance and are never serialized.
// swagger:model Registration
type Registration struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Location    string     `json:"location"`
	Age         *int       `json:"age"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	SchoolName  *string    `json:"school_name"`
	ParentName  *string    `json:"parent_name"`
	ParentPhone *string    `json:"parent_phone"`
	ParentEmail *string    `json:"parent_email"`

	ExperienceLevel string   `json:"experience_level"`
	Interests       []string `json:"interests"`
	Motivation      *string  `json:"motivation"`

	IPAddress *string `json:"-"`
	UserAgent *string `json:"-"`

	IsActive    bool `json:"is_active"`
	IsVerified  bool `json:"is_verified"`
	IsContacted bool `json:"is_contacted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns the student's first and last name joined with a space.
func (r *Registration) FullName() string {
	return r.FirstName + " " + r.LastName
}

// AgeGroup returns the display bucket for the student's age. Records without
// an age fall into the last bucket so the buckets partition every record.
func (r *Registration) AgeGroup() string {
	switch {
	case r.Age == nil:
		return "Mature Adult (36+)"
	case *r.Age <= 12:
		return "Child (≤12)"
	case *r.Age <= 17:
		return "Teen (13-17)"
	case *r.Age <= 25:
		return "Young Adult (18-25)"
	case *r.Age <= 35:
		return "Adult (26-35)"
	default:
		return "Mature Adult (36+)"
	}
}

// NormalizeName trims the value and title-cases each word, so " mary  ANNE "
// becomes "Mary Anne".
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything except digits and a leading plus sign.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, c := range strings.TrimSpace(phone) {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		} else if c == '+' && i == 0 {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// RegistrationFilter is the set of optional conjunctive filters for list,
// export, and count queries. Zero values impose no constraint. All queries are
// restricted to active records regardless of filters.
type RegistrationFilter struct {
	Experience string
	Location   string
	Verified   *bool
	Contacted  *bool
	AgeFrom    *int
	AgeTo      *int
	School     string
	Search     string
}

// Cursor identifies a position in the newest-first ordering for forward-only
// iteration. The zero value means "start from the newest record".
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// IsZero reports whether the cursor is unset.
func (c Cursor) IsZero() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// NewRegistrationInput carries the writable fields of a registration intake,
// already syntactically validated and normalized by the caller.
type NewRegistrationInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Location    string
	Age         *int
	DateOfBirth *time.Time
	SchoolName  *string
	ParentName  *string
	ParentPhone *string
	ParentEmail *string

	ExperienceLevel string
	Interests       []string
	Motivation      *string

	IPAddress string
	UserAgent string
}

// RegistrationRepository defines storage for registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	// List returns one page of active registrations (newest first) plus the
	// total count matching the filter.
	List(ctx context.Context, filter RegistrationFilter, page PaginationParams) ([]*Registration, int, error)
	// ListAfter returns up to limit active registrations strictly after the
	// cursor in newest-first order, plus the cursor for the next call. A zero
	// next cursor means iteration is exhausted.
	ListAfter(ctx context.Context, filter RegistrationFilter, cursor Cursor, limit int) ([]*Registration, Cursor, error)
	// ListAll returns every active registration matching the filter, newest
	// first. Intended for exports.
	ListAll(ctx context.Context, filter RegistrationFilter) ([]*Registration, error)
	MarkVerified(ctx context.Context, id string) error
	MarkContacted(ctx context.Context, id string) error
	// BulkMarkVerified flips is_verified to true for the given ids in one
	// set-based update and returns the number of rows actually changed.
	BulkMarkVerified(ctx context.Context, ids []string) (int64, error)
	BulkMarkContacted(ctx context.Context, ids []string) (int64, error)
	// CountExisting returns how many of the given ids reference a record.
	CountExisting(ctx context.Context, ids []string) (int, error)
	// DistinctSchools returns the sorted distinct non-empty school names of
	// active registrations.
	DistinctSchools(ctx context.Context) ([]string, error)
}

// RegistrationPage is one page of results with pagination metadata.
type RegistrationPage struct {
	Items      []*Registration
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	// NextCursor is set only for cursor-mode listing; empty means exhausted.
	NextCursor string
}

// RegistrationService defines the intake and admin operations over
// registrations.
type RegistrationService interface {
	Register(ctx context.Context, input *NewRegistrationInput) (*Registration, error)
	GetByID(ctx context.Context, id string) (*Registration, error)
	List(ctx context.Context, filter RegistrationFilter, page PaginationParams) (*RegistrationPage, error)
	ListByCursor(ctx context.Context, filter RegistrationFilter, cursor string, limit int) (*RegistrationPage, error)
	MarkVerified(ctx context.Context, id string) (*Registration, error)
	MarkContacted(ctx context.Context, id string) (*Registration, error)
	BulkMarkVerified(ctx context.Context, ids []string) (int64, error)
	BulkMarkContacted(ctx context.Context, ids []string) (int64, error)
	SchoolOptions(ctx context.Context) ([]string, error)
}
