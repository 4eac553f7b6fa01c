package domain

import "time"

type FieldType string

const (
	FieldSignature  FieldType = "signature"
	FieldInitials   FieldType = "initials"
	FieldDateSigned FieldType = "date_signed"
	FieldText       FieldType = "text"
	FieldCheckbox   FieldType = "checkbox"
	FieldName       FieldType = "name"
	FieldEmail      FieldType = "email"
	FieldCompany    FieldType = "company"
	FieldTitle      FieldType = "title"
)

// Field is a page-anchored placeholder. RecipientID may be empty for
// template-level or unassigned fields. The anchor rectangle is normalized
// to the page (0..1).
type Field struct {
	ID          string
	DocumentID  string
	RecipientID string
	Type        FieldType
	Page        int
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Required    bool

	Value    string
	FilledAt *time.Time
}

func (f Field) Filled() bool {
	return f.FilledAt != nil && f.Value != ""
}

// UnfilledRequired returns the required fields assigned to the recipient
// that do not yet carry a value. Signing is a precondition check over this
// set, not a database constraint.
func UnfilledRequired(fields []Field, recipientID string) []Field {
	var out []Field
	for _, f := range fields {
		if f.RecipientID != recipientID || !f.Required {
			continue
		}
		if !f.Filled() {
			out = append(out, f)
		}
	}
	return out
}

func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldSignature, FieldInitials, FieldDateSigned, FieldText,
		FieldCheckbox, FieldName, FieldEmail, FieldCompany, FieldTitle:
		return true
	}
	return false
}
