package metrics

import (
	"fmt"
	"regexp"

	"github.com/ppiankov/openinfo/internal/model"
)

// Class is the aggregation role of a document, decided by its file name.
// Attachments are sometimes filed under the wrong group on the portal, so the
// group a document came from is not used.
type Class string

const (
	ClassPrimary        Class = "primary"
	ClassCorrespondence Class = "correspondence"
)

var (
	// "pacakge" and "packkage" are typos that appear in published file names
	primaryPattern        = regexp.MustCompile(`(?i)pac(?:[ka]{2}|kka)ge|records`)
	correspondencePattern = regexp.MustCompile(`(?i)letter|email|note`)
)

// Classify decides whether a document is part of the released records bundle
// or correspondence about the request. A name matching both patterns is
// primary.
func Classify(title string) (Class, error) {
	switch {
	case primaryPattern.MatchString(title):
		return ClassPrimary, nil
	case correspondencePattern.MatchString(title):
		return ClassCorrespondence, nil
	default:
		return "", fmt.Errorf("%w: %q not recognized as letter, note or file", model.ErrClassification, title)
	}
}
