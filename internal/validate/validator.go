package validate

import (
	"slices"
	"strings"

	"github.com/ppiankov/openinfo/internal/extract"
	"github.com/ppiankov/openinfo/internal/model"
)

// Result carries diagnostics from a successful validation
type Result struct {
	// Labels present on the detail page outside the known label set
	Unexpected []string
}

// Validator cross-checks a list row against its detail page
type Validator struct {
	required []string
	allowed  map[string]bool
}

// NewValidator creates a validator for the portal's label contract
func NewValidator() *Validator {
	allowed := make(map[string]bool, len(extract.PossibleLabels))
	for _, label := range extract.PossibleLabels {
		allowed[label] = true
	}
	return &Validator{
		required: extract.RequiredLabels,
		allowed:  allowed,
	}
}

// Validate runs the checks in order and returns the first failure as a
// model.ErrValidation. Unexpected labels never fail validation on their own.
func (v *Validator) Validate(list *extract.ListRow, detail *extract.DetailPage) (*Result, error) {
	result := &Result{}

	for _, label := range detail.Labels {
		if !v.allowed[label] && !slices.Contains(result.Unexpected, label) {
			result.Unexpected = append(result.Unexpected, label)
		}
	}

	var missing []string
	for _, label := range v.required {
		if !slices.Contains(detail.Labels, label) {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return result, model.Validationf("%s: missing labels %s", list.Identifier, strings.Join(missing, ", "))
	}

	if !strings.Contains(detail.Abstract, list.Abstract) {
		return result, model.Validationf("%s: detail abstract does not contain list abstract %q", list.Identifier, list.Abstract)
	}

	fields := []struct {
		name         string
		list, detail string
	}{
		{"title", list.Title, detail.Title},
		{"identifier", list.Identifier, detail.Identifier},
		{"date", list.Date, detail.Date},
		{"organization", list.Organization, detail.Organization},
	}
	for _, f := range fields {
		if f.list != f.detail {
			return result, model.Validationf("%s: %s mismatch: list %q, detail %q", list.Identifier, f.name, f.list, f.detail)
		}
	}

	if len(detail.Letters) == 0 && len(detail.Notes) == 0 && len(detail.Files) == 0 {
		return result, model.Validationf("%s: no letters, notes or files", list.Identifier)
	}

	return result, nil
}

// Merge builds the record from a validated list row and detail page. Scalar
// fields come from the detail page where the list row only carries a preview.
func Merge(list *extract.ListRow, detail *extract.DetailPage) *model.Record {
	return &model.Record{
		DivisionID:    model.DivisionID,
		ID:            list.ID,
		Identifier:    list.Identifier,
		Position:      list.Position,
		Title:         list.Title,
		Abstract:      detail.Abstract,
		Organization:  detail.Organization,
		ApplicantType: detail.ApplicantType,
		ProcessingFee: detail.ProcessingFee,
		Date:          list.Date,
		URL:           list.URL,
		Letters:       detail.Letters,
		Notes:         detail.Notes,
		Files:         detail.Files,
	}
}
