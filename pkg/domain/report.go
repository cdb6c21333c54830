// Package domain defines the report record, its scalar fields and the
// validation rules shared by the store, the draft registry and the adapters.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxImages bounds the gallery attached to a single report.
	MaxImages = 4
	// MaxImageBytes is the largest accepted source payload per image, before encoding.
	MaxImageBytes int64 = 5 * 1024 * 1024
)

// Report is one persisted one-page report describing a single school program.
// A Report is immutable after creation; the store only ever prepends or deletes.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Fields
	Images []string `json:"images"`
}

// Fields holds the scalar form values of a report.
type Fields struct {
	ProgramName      string `json:"program_name"`
	Organizer        string `json:"organizer"`
	Date             string `json:"date"` // YYYY-MM-DD
	Time             string `json:"time"` // HH:MM
	Venue            string `json:"venue"`
	ParticipantCount string `json:"participant_count"`
	TargetGroup      string `json:"target_group"`
	Objectives       string `json:"objectives"`
	Activities       string `json:"activities"`
	Summary          string `json:"summary"`
	PreparedBy       string `json:"prepared_by"`
}

// Field names one scalar form field. The set is closed: every value is one of
// the constants below and carries the JSON name used on the wire.
type Field string

// Form fields in display order.
const (
	FieldProgramName      Field = "program_name"
	FieldOrganizer        Field = "organizer"
	FieldDate             Field = "date"
	FieldTime             Field = "time"
	FieldVenue            Field = "venue"
	FieldParticipantCount Field = "participant_count"
	FieldTargetGroup      Field = "target_group"
	FieldObjectives       Field = "objectives"
	FieldActivities       Field = "activities"
	FieldSummary          Field = "summary"
	FieldPreparedBy       Field = "prepared_by"
)

var allFields = []Field{
	FieldProgramName,
	FieldOrganizer,
	FieldDate,
	FieldTime,
	FieldVenue,
	FieldParticipantCount,
	FieldTargetGroup,
	FieldObjectives,
	FieldActivities,
	FieldSummary,
	FieldPreparedBy,
}

// RequiredFields must be non-blank when a draft is submitted.
var RequiredFields = []Field{FieldProgramName, FieldOrganizer, FieldPreparedBy}

// AllFields returns every known field in display order.
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// ParseField resolves a wire name into a Field.
func ParseField(name string) (Field, error) {
	candidate := Field(strings.TrimSpace(name))
	for _, f := range allFields {
		if f == candidate {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Get returns the value stored for f.
func (f *Fields) Get(field Field) string {
	if p := f.slot(field); p != nil {
		return *p
	}
	return ""
}

// Set overwrites the value stored for field. Values are not validated here.
func (f *Fields) Set(field Field, value string) error {
	p := f.slot(field)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
	*p = value
	return nil
}

func (f *Fields) slot(field Field) *string {
	switch field {
	case FieldProgramName:
		return &f.ProgramName
	case FieldOrganizer:
		return &f.Organizer
	case FieldDate:
		return &f.Date
	case FieldTime:
		return &f.Time
	case FieldVenue:
		return &f.Venue
	case FieldParticipantCount:
		return &f.ParticipantCount
	case FieldTargetGroup:
		return &f.TargetGroup
	case FieldObjectives:
		return &f.Objectives
	case FieldActivities:
		return &f.Activities
	case FieldSummary:
		return &f.Summary
	case FieldPreparedBy:
		return &f.PreparedBy
	default:
		return nil
	}
}

// Validate reports the required fields that are blank.
func (f Fields) Validate() error {
	var missing []Field
	for _, field := range RequiredFields {
		if strings.TrimSpace(f.Get(field)) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return ValidationError{Missing: missing}
	}
	return nil
}

// Clone returns a deep copy of the report.
func (r Report) Clone() Report {
	out := r
	if r.Images != nil {
		out.Images = make([]string, len(r.Images))
		copy(out.Images, r.Images)
	}
	return out
}

// CloneReports deep-copies a slice of reports, preserving order.
func CloneReports(in []Report) []Report {
	out := make([]Report, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// ValidationError lists the mandatory fields missing from a submission.
type ValidationError struct {
	Missing []Field
}

func (e ValidationError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return "mandatory fields missing: " + strings.Join(names, ", ")
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when no report has the requested id.
	ErrNotFound = errors.New("report not found")
	// ErrUnknownField is returned for a field name outside the closed set.
	ErrUnknownField = errors.New("unknown report field")
)
