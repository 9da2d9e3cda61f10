package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/openinfo/internal/model"
)

// nextPageMarker is the glyph on the pagination "next" link
const nextPageMarker = "►"

// ListRow holds the fields read from one row of a results page
type ListRow struct {
	ID           string
	Title        string
	Identifier   string
	Position     int
	URL          string
	Abstract     string // Ellipsis stripped
	Date         string // YYYY-MM-DD
	Organization string
}

// ListPage is one fetched page of results
type ListPage struct {
	Rows    []*goquery.Selection // Data rows, header excluded
	HasNext bool
}

// ParseListPage splits a results page into data rows and detects the
// pagination "next" control. A page without any table row means the markup
// contract changed.
func ParseListPage(body []byte) (*ListPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	trs := doc.Find("tr")
	if trs.Length() == 0 {
		return nil, model.Structuralf("results page has no table rows")
	}

	page := &ListPage{}
	trs.Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
		page.Rows = append(page.Rows, tr)
	})

	page.HasNext = doc.Find("div.pagination a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.Contains(a.Text(), nextPageMarker)
	}).Length() > 0

	return page, nil
}

// ParseListRow reads the four positional cells of a results row. Every
// failure here is structural: the list page is the anchor for the whole walk.
func ParseListRow(tr *goquery.Selection, base *url.URL) (*ListRow, error) {
	tds := tr.ChildrenFiltered("td")
	if tds.Length() < 4 {
		return nil, model.Structuralf("expected 4 cells in results row, got %d", tds.Length())
	}

	title := collapse(tds.Eq(0).Text())
	identifier, err := IdentifierFromTitle(title)
	if err != nil {
		return nil, model.Structuralf("%v", err)
	}
	position, err := PositionFromIdentifier(identifier)
	if err != nil {
		return nil, model.Structuralf("%v", err)
	}

	href, ok := tds.Eq(0).Find("[href]").First().Attr("href")
	if !ok {
		return nil, model.Structuralf("no detail link for %s", identifier)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, model.Structuralf("detail link for %s: %v", identifier, err)
	}
	detailURL := base.ResolveReference(ref).String()

	id, err := RecordIDFromURL(detailURL)
	if err != nil {
		return nil, model.Structuralf("%v", err)
	}

	date, err := ParseDate(tds.Eq(2).Text())
	if err != nil {
		return nil, model.Structuralf("%s: %v", identifier, err)
	}

	return &ListRow{
		ID:           id,
		Title:        title,
		Identifier:   identifier,
		Position:     position,
		URL:          detailURL,
		Abstract:     StripEllipsis(collapse(tds.Eq(1).Text())),
		Date:         date,
		Organization: collapse(tds.Eq(3).Text()),
	}, nil
}
