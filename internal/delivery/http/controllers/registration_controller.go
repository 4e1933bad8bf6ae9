package controllers

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"agriregistration/internal/delivery/http/helpers"
	"agriregistration/internal/domain"
)

var (
	emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameRegexp  = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	phoneRegexp = regexp.MustCompile(`^\+?[1-9]\d{0,14}$`)
)

const (
	minAge        = 5
	maxAge        = 100
	maxMotivation = 2000

	// confirmationMessage is returned with every successful sign-up.
	confirmationMessage = "Registration successful! Our team will contact you within 24-48 hours."
)

// RegisterRequest is the request body for POST /v1/register.
type RegisterRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Location    string  `json:"location"`
	Age         *int    `json:"age"`
	DateOfBirth *string `json:"date_of_birth"` // YYYY-MM-DD
	SchoolName  *string `json:"school_name"`
	ParentName  *string `json:"parent_name"`
	ParentPhone *string `json:"parent_phone"`
	ParentEmail *string `json:"parent_email"`

	ExperienceLevel string   `json:"experience_level"`
	Interests       []string `json:"interests"`
	Motivation      *string  `json:"motivation"`
}

// Validate implements Validator.
func (req RegisterRequest) Validate() []string {
	var errs []string

	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" {
		errs = append(errs, "first_name is required")
	} else if !nameRegexp.MatchString(first) {
		errs = append(errs, "first_name may only contain letters, spaces, hyphens, apostrophes, and periods")
	}
	if last == "" {
		errs = append(errs, "last_name is required")
	} else if !nameRegexp.MatchString(last) {
		errs = append(errs, "last_name may only contain letters, spaces, hyphens, apostrophes, and periods")
	}

	email := domain.NormalizeEmail(req.Email)
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}

	phone := domain.NormalizePhone(req.Phone)
	if phone == "" {
		errs = append(errs, "phone is required")
	} else if !phoneRegexp.MatchString(phone) {
		errs = append(errs, "invalid phone number")
	}

	if strings.TrimSpace(req.Location) == "" {
		errs = append(errs, "location is required")
	}

	if req.ExperienceLevel == "" {
		errs = append(errs, "experience_level is required")
	} else if !domain.IsValidExperienceLevel(req.ExperienceLevel) {
		errs = append(errs, "experience_level must be one of: beginner, intermediate, advanced, professional")
	}

	if len(req.Interests) > domain.MaxInterests {
		errs = append(errs, "interests may contain at most 8 entries")
	}
	for _, interest := range req.Interests {
		if !domain.IsValidInterest(interest) {
			errs = append(errs, "interests contains a value outside the allowed list")
			break
		}
	}

	if req.Age != nil && (*req.Age < minAge || *req.Age > maxAge) {
		errs = append(errs, "age must be between 5 and 100")
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			errs = append(errs, "date_of_birth must be formatted YYYY-MM-DD")
		} else if dob.After(time.Now()) {
			errs = append(errs, "date_of_birth must be in the past")
		}
	}

	if req.ParentEmail != nil && *req.ParentEmail != "" && !emailRegexp.MatchString(domain.NormalizeEmail(*req.ParentEmail)) {
		errs = append(errs, "invalid parent_email format")
	}
	if req.Motivation != nil && len(*req.Motivation) > maxMotivation {
		errs = append(errs, "motivation may be at most 2000 characters")
	}

	return errs
}

// RegisterResponse is the response body for a successful POST /v1/register.
type RegisterResponse struct {
	Message      string               `json:"message"`
	Registration *domain.Registration `json:"registration"`
}

// RegistrationController handles the public intake and analytics endpoints.
type RegistrationController struct {
	Logger    *slog.Logger
	Service   domain.RegistrationService
	Analytics domain.AnalyticsService
	Debug     bool
}

// NewRegistrationController creates a RegistrationController.
func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService, analytics domain.AnalyticsService, debug bool) *RegistrationController {
	return &RegistrationController{
		Logger:    logger,
		Service:   svc,
		Analytics: analytics,
		Debug:     debug,
	}
}

// Register godoc
// @Summary Submit a student registration
// @Description Create a student registration for the training program. Email must be unique; interests limited to 8 entries from the fixed vocabulary.
// @Tags public
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} helpers.APIResponse "data contains the confirmation message and the created registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 422 {object} helpers.APIResponse "error.code: validation_failed with field detail"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /v1/register [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	input := &domain.NewRegistrationInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Location:        strings.TrimSpace(req.Location),
		Age:             req.Age,
		SchoolName:      req.SchoolName,
		ParentName:      req.ParentName,
		ParentPhone:     req.ParentPhone,
		ParentEmail:     req.ParentEmail,
		ExperienceLevel: req.ExperienceLevel,
		Interests:       req.Interests,
		Motivation:      req.Motivation,
		IPAddress:       clientIP(r),
		UserAgent:       r.UserAgent(),
	}
	if req.DateOfBirth != nil {
		if dob, err := time.Parse("2006-01-02", *req.DateOfBirth); err == nil {
			input.DateOfBirth = &dob
		}
	}

	reg, err := c.Service.Register(r.Context(), input)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			helpers.WriteValidationError(w, ve)
			return
		}
		c.internalError(w, r, err)
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusCreated, RegisterResponse{
		Message:      confirmationMessage,
		Registration: reg,
	})
}

// GetAnalytics godoc
// @Summary Get the aggregated analytics bundle
// @Description Returns summary statistics, breakdowns by experience, location, school and interest, the age distribution, and the last 30 days of daily counts. Served from cache.
// @Tags public
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains the analytics bundle"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /v1/analytics [get]
func (c *RegistrationController) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	bundle, err := c.Analytics.GetAnalytics(r.Context())
	if err != nil {
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, bundle)
}

// Health godoc
// @Summary Liveness probe
// @Tags public
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Router /health [get]
func (c *RegistrationController) Health(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// internalError logs the failure and answers with a generic 500. The real
// error text is only exposed when debug mode is on.
func (c *RegistrationController) internalError(w http.ResponseWriter, r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	message := "something went wrong, please try again later"
	if c.Debug {
		message = err.Error()
	}
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, message)
}

// clientIP extracts the caller's address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
