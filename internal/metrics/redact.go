package metrics

import (
	"context"
	"regexp"

	"github.com/ppiankov/openinfo/internal/model"
)

// Redactor scrubs boilerplate text (identifiers, section references, page
// numbers) from a stored document and may update its metadata. No
// implementation ships with this module.
type Redactor interface {
	Redact(ctx context.Context, doc *model.Document, localPath string, patterns []*regexp.Regexp) error
}

// RedactionPatterns builds the pattern set passed to a Redactor for the
// documents of record
func RedactionPatterns(record *model.Record) []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`\b` + regexp.QuoteMeta(record.Identifier) + `\b`),
		regexp.MustCompile(`\b[Ss]\.? ?\d+\b,*`),
		regexp.MustCompile(`\b(?:Page:? )?\d+\b`),
	}
}
