package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/openinfo/internal/model"
)

const (
	titlePrefix    = "FOI Request - "
	portalDateForm = "January 2, 2006"
	canonicalDate  = "2006-01-02"
)

var (
	identifierPattern = regexp.MustCompile(`\A` + regexp.QuoteMeta(titlePrefix) + `(\S+)\z`)
	positionPattern   = regexp.MustCompile(`\A[A-Z]{3}-\d{4}-0*(\d+)\z`)
	recordUIDPattern  = regexp.MustCompile(`\brecorduid(?::|%3[Aa])([^&]+)`)
	sizeLabelPattern  = regexp.MustCompile(`\(([0-9.]+\s*[KMG]?B)\)`)
)

// IdentifierFromTitle extracts "FIN-2011-00184" from "FOI Request - FIN-2011-00184"
func IdentifierFromTitle(title string) (string, error) {
	m := identifierPattern.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return "", fmt.Errorf("title %q does not match %q<identifier>", title, titlePrefix)
	}
	return m[1], nil
}

// PositionFromIdentifier returns the integer suffix of an identifier
func PositionFromIdentifier(identifier string) (int, error) {
	m := positionPattern.FindStringSubmatch(identifier)
	if m == nil {
		return 0, fmt.Errorf("identifier %q has no numeric suffix", identifier)
	}
	return strconv.Atoi(m[1])
}

// ParseDate converts "November 3, 2015" into "2015-11-03"
func ParseDate(text string) (string, error) {
	normalized := strings.Join(strings.Fields(text), " ")
	t, err := time.Parse(portalDateForm, normalized)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", text, err)
	}
	return t.Format(canonicalDate), nil
}

// StripEllipsis removes the truncation marker the list page appends to abstracts
func StripEllipsis(text string) string {
	text = strings.TrimSpace(text)
	for _, marker := range []string{"...", "…"} {
		if strings.HasSuffix(text, marker) {
			return strings.TrimSpace(strings.TrimSuffix(text, marker))
		}
	}
	return text
}

// RecordIDFromURL reads the recorduid carried in a detail link's P110 parameters
func RecordIDFromURL(rawURL string) (string, error) {
	if parsed, err := url.Parse(rawURL); err == nil {
		for _, v := range parsed.Query()["P110"] {
			if id, ok := strings.CutPrefix(v, "recorduid:"); ok && id != "" {
				return id, nil
			}
		}
	}

	if m := recordUIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("no recorduid in %q", rawURL)
}

// ParseFee strips the currency symbol and checks the remainder is a decimal
func ParseFee(text string) (string, error) {
	fee := strings.TrimSpace(text)
	fee = strings.TrimPrefix(fee, "$")
	fee = strings.ReplaceAll(fee, ",", "")
	if _, err := strconv.ParseFloat(fee, 64); err != nil {
		return "", model.Validationf("processing fee %q is not a decimal", text)
	}
	return fee, nil
}

// SizeLabel extracts "1.2MB" from an attachment entry such as "Package.pdf (1.2MB)"
func SizeLabel(text string) string {
	m := sizeLabelPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// collapse trims and folds internal whitespace runs
func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
