package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/openinfo/internal/model"
	"golang.org/x/net/html"
)

// Display labels on the detail page
const (
	LabelApplicantType = "Applicant Type"
	LabelOrganization  = "Ministry"
	LabelProcessingFee = "Fees paid by applicant"
	LabelDate          = "Publication Date"
	LabelLetters       = "Letters"
	LabelNotes         = "Notes"
	LabelFiles         = "Files"
)

// detailContainer wraps the record on a detail page
const detailContainer = "div.saquery_searchResult_ibc"

// PossibleLabels is every label the detail page may carry
var PossibleLabels = []string{
	LabelApplicantType,
	LabelOrganization,
	LabelProcessingFee,
	LabelDate,
	LabelLetters,
	LabelNotes,
	LabelFiles,
}

// RequiredLabels are the scalar labels every detail page must carry
var RequiredLabels = []string{
	LabelApplicantType,
	LabelOrganization,
	LabelProcessingFee,
	LabelDate,
}

var groupLabels = map[model.AttachmentGroup]string{
	model.GroupLetters: LabelLetters,
	model.GroupNotes:   LabelNotes,
	model.GroupFiles:   LabelFiles,
}

// DetailPage holds the fields read from a record's detail page
type DetailPage struct {
	Title         string
	Identifier    string
	Abstract      string
	ApplicantType string
	Organization  string
	ProcessingFee string
	Date          string
	Letters       []model.Document
	Notes         []model.Document
	Files         []model.Document

	// Labels actually present, trimmed and without the trailing colon
	Labels []string
}

// ParseDetailPage reads a detail page. A missing record container is
// structural; anything else wrong with the page is a validation error that
// only excludes this record.
func ParseDetailPage(body []byte) (*DetailPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	div := doc.Find(detailContainer).First()
	if div.Length() == 0 {
		return nil, model.Structuralf("detail page has no %s", detailContainer)
	}

	page := &DetailPage{
		Title:    collapse(div.ChildrenFiltered("h3").Text()),
		Abstract: fullAbstract(div),
		Labels:   presentLabels(div),
	}

	var errs []error

	identifier, err := IdentifierFromTitle(page.Title)
	if err != nil {
		errs = append(errs, model.Validationf("%v", err))
	}
	page.Identifier = identifier

	if b := findLabel(div, LabelApplicantType); b != nil {
		page.ApplicantType, err = labelText(b, LabelApplicantType)
		errs = append(errs, err)
	}
	if b := findLabel(div, LabelOrganization); b != nil {
		page.Organization, err = labelText(b, LabelOrganization)
		errs = append(errs, err)
	}
	if b := findLabel(div, LabelProcessingFee); b != nil {
		text, err := labelText(b, LabelProcessingFee)
		if err == nil {
			page.ProcessingFee, err = ParseFee(text)
		}
		errs = append(errs, err)
	}
	if b := findLabel(div, LabelDate); b != nil {
		text, err := labelText(b, LabelDate)
		if err == nil {
			page.Date, err = ParseDate(text)
			if err != nil {
				err = model.Validationf("%v", err)
			}
		}
		errs = append(errs, err)
	}

	for _, group := range model.AttachmentGroups {
		label := groupLabels[group]
		b := findLabel(div, label)
		if b == nil {
			continue
		}
		docs, err := attachments(b, label)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch group {
		case model.GroupLetters:
			page.Letters = docs
		case model.GroupNotes:
			page.Notes = docs
		case model.GroupFiles:
			page.Files = docs
		}
	}

	if err := errors.Join(errs...); err != nil {
		return page, err
	}
	return page, nil
}

// fullAbstract joins the paragraphs that follow the first paragraph, up to
// the first h4 heading
func fullAbstract(div *goquery.Selection) string {
	var paragraphs []string
	div.ChildrenFiltered("p").First().NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		switch goquery.NodeName(s) {
		case "h4":
			return false
		case "p":
			paragraphs = append(paragraphs, collapse(s.Text()))
		}
		return true
	})
	return strings.Join(paragraphs, "\n\n")
}

func presentLabels(div *goquery.Selection) []string {
	var labels []string
	div.Find("b").Each(func(_ int, b *goquery.Selection) {
		label := strings.TrimSuffix(strings.TrimSpace(b.Text()), ":")
		labels = append(labels, strings.TrimSpace(label))
	})
	return labels
}

func findLabel(div *goquery.Selection, label string) *goquery.Selection {
	b := div.Find("b").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label)
	}).First()
	if b.Length() == 0 {
		return nil
	}
	return b
}

// labelText returns the first text node after the label element
func labelText(b *goquery.Selection, label string) (string, error) {
	for n := b.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode {
			return collapse(n.Data), nil
		}
	}
	return "", model.Validationf("no text after %q label", label)
}

// attachments reads the list that follows the label's parent element. A label
// without entries means the list markup moved.
func attachments(b *goquery.Selection, label string) ([]model.Document, error) {
	lis := b.Parent().NextAllFiltered("ul").First().ChildrenFiltered("li")
	if lis.Length() == 0 {
		return nil, model.Validationf("expected %s entries after label", strings.ToLower(label))
	}

	docs := make([]model.Document, 0, lis.Length())
	var err error
	lis.EachWithBreak(func(_ int, li *goquery.Selection) bool {
		a := li.ChildrenFiltered("a").First()
		if a.Length() == 0 {
			err = model.Validationf("%s entry without link: %q", strings.ToLower(label), collapse(li.Text()))
			return false
		}
		docs = append(docs, model.Document{
			Title:         strings.TrimSpace(a.Text()),
			URL:           strings.TrimSpace(a.AttrOr("href", "")),
			ByteSizeLabel: SizeLabel(li.Text()),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
