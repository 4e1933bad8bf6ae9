package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"agriregistration/internal/adapters/export"
	"agriregistration/internal/domain"
)

type exportService struct {
	repo     domain.RegistrationRepository
	sanitize *bluemonday.Policy

	now func() time.Time
}

// NewExportService creates an ExportService over the registration store.
func NewExportService(repo domain.RegistrationRepository) domain.ExportService {
	return &exportService{
		repo:     repo,
		sanitize: bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

func (s *exportService) Export(ctx context.Context, filter domain.RegistrationFilter, fields []string, format domain.ExportFormat) (*domain.ExportResult, error) {
	if len(fields) == 0 {
		fields = domain.DefaultExportFields
	}

	headers := make([]string, 0, len(fields))
	for _, field := range fields {
		header := domain.ExportHeader(field)
		if header == "" {
			ve := domain.NewValidationError()
			ve.Add("fields", fmt.Sprintf("unknown export field %q", field))
			return nil, ve
		}
		headers = append(headers, header)
	}

	regs, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load registrations for export: %w", err)
	}

	rows := make([][]string, 0, len(regs))
	for _, reg := range regs {
		row := make([]string, 0, len(fields))
		for _, field := range fields {
			row = append(row, s.fieldValue(reg, field))
		}
		rows = append(rows, row)
	}

	stamp := s.now().Format("2006-01-02-15-04-05")
	switch format {
	case domain.ExportFormatXLSX:
		content, err := export.WriteXLSX(headers, rows)
		if err != nil {
			return nil, fmt.Errorf("render spreadsheet: %w", err)
		}
		return &domain.ExportResult{
			Filename:    "student-registrations-" + stamp + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	case domain.ExportFormatPDF:
		content, err := export.WritePDF("Student Registrations", headers, rows, s.now())
		if err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		return &domain.ExportResult{
			Filename:    "student-registrations-" + stamp + ".pdf",
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		ve := domain.NewValidationError()
		ve.Add("format", fmt.Sprintf("unknown export format %q", format))
		return nil, ve
	}
}

// fieldValue renders one field of a record for export. Missing values render
// as the empty string, booleans as Yes/No, codes as their display labels.
func (s *exportService) fieldValue(reg *domain.Registration, field string) string {
	switch field {
	case "first_name":
		return reg.FirstName
	case "last_name":
		return reg.LastName
	case "full_name":
		return reg.FullName()
	case "email":
		return reg.Email
	case "phone":
		return reg.Phone
	case "age":
		if reg.Age == nil {
			return ""
		}
		return strconv.Itoa(*reg.Age)
	case "date_of_birth":
		if reg.DateOfBirth == nil {
			return ""
		}
		return reg.DateOfBirth.Format("2006-01-02")
	case "location":
		return reg.Location
	case "school_name":
		return deref(reg.SchoolName)
	case "parent_name":
		return deref(reg.ParentName)
	case "parent_phone":
		return deref(reg.ParentPhone)
	case "parent_email":
		return deref(reg.ParentEmail)
	case "experience_level":
		return domain.ExperienceLevelLabel(reg.ExperienceLevel)
	case "interests":
		return formatInterests(reg.Interests)
	case "motivation":
		return s.stripMarkup(deref(reg.Motivation))
	case "is_active":
		return yesNo(reg.IsActive)
	case "is_verified":
		return yesNo(reg.IsVerified)
	case "is_contacted":
		return yesNo(reg.IsContacted)
	case "created_at":
		return reg.CreatedAt.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// formatInterests joins interests with commas. A single element that itself
// holds a JSON array (a legacy double-encoded value) is decoded first.
func formatInterests(interests []string) string {
	if len(interests) == 1 && strings.HasPrefix(strings.TrimSpace(interests[0]), "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(interests[0]), &decoded); err == nil {
			return strings.Join(decoded, ", ")
		}
	}
	return strings.Join(interests, ", ")
}

// stripMarkup removes any HTML from free text, keeping the readable content.
func (s *exportService) stripMarkup(text string) string {
	if text == "" {
		return ""
	}
	return html.UnescapeString(s.sanitize.Sanitize(text))
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
