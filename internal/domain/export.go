package domain

import "context"

// ExportFormat selects the export output type.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportField pairs a selectable field key with its column header.
type ExportField struct {
	Key    string
	Header string
}

// ExportableFields is the ordered superset of fields an export may include.
var ExportableFields = []ExportField{
	{"first_name", "First Name"},
	{"last_name", "Last Name"},
	{"full_name", "Full Name"},
	{"email", "Email"},
	{"phone", "Phone"},
	{"age", "Age"},
	{"date_of_birth", "Date of Birth"},
	{"location", "Location"},
	{"school_name", "School Name"},
	{"parent_name", "Parent Name"},
	{"parent_phone", "Parent Phone"},
	{"parent_email", "Parent Email"},
	{"experience_level", "Experience Level"},
	{"interests", "Interests"},
	{"motivation", "Motivation"},
	{"is_active", "Active"},
	{"is_verified", "Verified"},
	{"is_contacted", "Contacted"},
	{"created_at", "Registration Date"},
}

// DefaultExportFields is the field subset used when the caller selects none.
var DefaultExportFields = []string{
	"first_name", "last_name", "email", "phone", "age",
	"school_name", "location", "parent_name", "experience_level",
}

// ExportHeader returns the column header for a field key, or "" when the key
// is not exportable.
func ExportHeader(key string) string {
	for _, f := range ExportableFields {
		if f.Key == key {
			return f.Header
		}
	}
	return ""
}

// ExportResult is a rendered export document ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders filtered registrations into downloadable documents.
type ExportService interface {
	Export(ctx context.Context, filter RegistrationFilter, fields []string, format ExportFormat) (*ExportResult, error)
}
