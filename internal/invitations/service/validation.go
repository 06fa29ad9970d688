package invitations

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"ms-invitations/internal/models"
)

var validate = validator.New()

// Column widths of invitations.email and invitations.name.
const (
	MaxEmailLength = 254
	MaxNameLength  = 100
)

// NormalizeEmail trims and lowercases an address so (event, email) uniqueness
// does not depend on how the organizer typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail returns an *models.InvalidEmailError unless email is a
// syntactically valid address.
func ValidateEmail(email string) error {
	if err := validate.Var(email, fmt.Sprintf("required,email,max=%d", MaxEmailLength)); err != nil {
		return &models.InvalidEmailError{Value: email}
	}
	return nil
}

// ValidateName rejects display names that do not fit the name column.
func ValidateName(name string) error {
	if err := validate.Var(name, fmt.Sprintf("max=%d", MaxNameLength)); err != nil {
		return fmt.Errorf("%w: name must be at most %d characters", models.ErrInvalidInput, MaxNameLength)
	}
	return nil
}

// BatchReport is the result of checking every entry of a bulk invite.
type BatchReport struct {
	Valid   []string
	Invalid []string
}

// FirstInvalid returns the error for the first rejected entry, or nil.
func (r BatchReport) FirstInvalid() error {
	if len(r.Invalid) == 0 {
		return nil
	}
	return &models.InvalidEmailError{Value: r.Invalid[0]}
}

// ValidateEmailBatch normalizes and checks each entry. Order is preserved
// in both lists.
func ValidateEmailBatch(emails []string) BatchReport {
	var report BatchReport
	for _, raw := range emails {
		email := NormalizeEmail(raw)
		if ValidateEmail(email) != nil {
			report.Invalid = append(report.Invalid, strings.TrimSpace(raw))
			continue
		}
		report.Valid = append(report.Valid, email)
	}
	return report
}

// ParseEmailList splits textarea input into one entry per non-blank line.
func ParseEmailList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// DefaultName derives a display name from the local part of an address.
func DefaultName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if utf8.RuneCountInString(local) > MaxNameLength {
		local = string([]rune(local)[:MaxNameLength])
	}
	return local
}
