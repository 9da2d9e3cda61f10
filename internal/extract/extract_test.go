package extract

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/ppiankov/openinfo/internal/model"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	body, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return body
}

func portalBase(t *testing.T) *url.URL {
	t.Helper()
	base, err := url.Parse("http://www.openinfo.gov.bc.ca")
	if err != nil {
		t.Fatal(err)
	}
	return base
}

func TestIdentifierAndPosition(t *testing.T) {
	tests := []struct {
		title      string
		identifier string
		position   int
		wantErr    bool
	}{
		{"FOI Request - FIN-2011-00184", "FIN-2011-00184", 184, false},
		{"FOI Request - CTZ-2015-10000", "CTZ-2015-10000", 10000, false},
		{"  FOI Request - JAG-2014-00007 ", "JAG-2014-00007", 7, false},
		{"Request - FIN-2011-00184", "", 0, true},
		{"FOI Request - FIN 2011", "", 0, true},
	}

	for _, tt := range tests {
		identifier, err := IdentifierFromTitle(tt.title)
		if tt.wantErr {
			if err == nil {
				t.Errorf("IdentifierFromTitle(%q): expected error", tt.title)
			}
			continue
		}
		if err != nil {
			t.Fatalf("IdentifierFromTitle(%q): %v", tt.title, err)
		}
		if identifier != tt.identifier {
			t.Errorf("IdentifierFromTitle(%q) = %q, want %q", tt.title, identifier, tt.identifier)
		}

		position, err := PositionFromIdentifier(identifier)
		if err != nil {
			t.Fatalf("PositionFromIdentifier(%q): %v", identifier, err)
		}
		if position != tt.position {
			t.Errorf("PositionFromIdentifier(%q) = %d, want %d", identifier, position, tt.position)
		}
	}

	if _, err := PositionFromIdentifier("fin-2011-00184"); err == nil {
		t.Error("Expected lowercase ministry code to be rejected")
	}
}

func TestParseDate(t *testing.T) {
	tests := map[string]string{
		"November 3, 2015":  "2015-11-03",
		"November  3, 2015": "2015-11-03",
		"January 31, 2012":  "2012-01-31",
	}
	for in, want := range tests {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseDate(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseDate("2015-11-03"); err == nil {
		t.Error("Expected ISO date to be rejected")
	}
}

func TestStripEllipsis(t *testing.T) {
	tests := map[string]string{
		"Briefing notes about the HST...": "Briefing notes about the HST",
		"Briefing notes about the HST…":   "Briefing notes about the HST",
		"Complete abstract.":              "Complete abstract.",
	}
	for in, want := range tests {
		if got := StripEllipsis(in); got != want {
			t.Errorf("StripEllipsis(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordIDFromURL(t *testing.T) {
	tests := map[string]string{
		"http://www.openinfo.gov.bc.ca/ibc/search/detail.page?P110=recorduid%3A3032724&config=ibc": "3032724",
		"http://www.openinfo.gov.bc.ca/ibc/search/detail.page?config=ibc&P110=recorduid:99":        "99",
	}
	for in, want := range tests {
		got, err := RecordIDFromURL(in)
		if err != nil {
			t.Fatalf("RecordIDFromURL(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("RecordIDFromURL(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := RecordIDFromURL("http://www.openinfo.gov.bc.ca/ibc/search/detail.page?config=ibc"); err == nil {
		t.Error("Expected error when recorduid is missing")
	}
}

func TestParseFee(t *testing.T) {
	fee, err := ParseFee(" $45.00")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if fee != "45.00" {
		t.Errorf("Expected 45.00, got %s", fee)
	}

	if _, err := ParseFee("waived"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestSizeLabel(t *testing.T) {
	if got := SizeLabel("Package.pdf (2.3 MB)"); got != "2.3 MB" {
		t.Errorf("Expected 2.3 MB, got %q", got)
	}
	if got := SizeLabel("Letter.pdf (0.1MB)"); got != "0.1MB" {
		t.Errorf("Expected 0.1MB, got %q", got)
	}
	if got := SizeLabel("Letter.pdf"); got != "" {
		t.Errorf("Expected empty label, got %q", got)
	}
}

func TestParseListPage(t *testing.T) {
	page, err := ParseListPage(readFixture(t, "list.html"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(page.Rows) != 2 {
		t.Fatalf("Expected 2 data rows (header skipped), got %d", len(page.Rows))
	}
	if !page.HasNext {
		t.Error("Expected next page control to be detected")
	}

	row, err := ParseListRow(page.Rows[0], portalBase(t))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if row.ID != "3032724" {
		t.Errorf("Expected id 3032724, got %s", row.ID)
	}
	if row.Identifier != "FIN-2011-00184" || row.Position != 184 {
		t.Errorf("Unexpected identifier/position: %s/%d", row.Identifier, row.Position)
	}
	if row.Date != "2015-11-03" {
		t.Errorf("Expected 2015-11-03, got %s", row.Date)
	}
	if row.Organization != "Finance" {
		t.Errorf("Expected Finance, got %s", row.Organization)
	}
	if strings.HasSuffix(row.Abstract, "...") {
		t.Errorf("Expected ellipsis to be stripped, got %q", row.Abstract)
	}
	if !strings.HasPrefix(row.URL, "http://www.openinfo.gov.bc.ca/ibc/search/detail.page?") {
		t.Errorf("Expected absolute detail URL, got %s", row.URL)
	}

	second, err := ParseListRow(page.Rows[1], portalBase(t))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if second.ID != "3032725" || second.Date != "2015-11-04" {
		t.Errorf("Unexpected second row: %+v", second)
	}
}

func TestParseListPage_LastPage(t *testing.T) {
	body := []byte(`<table><tr><th>Title</th></tr></table><div class="pagination"><a href="?index=0">&#9668;</a></div>`)
	page, err := ParseListPage(body)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if page.HasNext {
		t.Error("Expected no next page")
	}
	if len(page.Rows) != 0 {
		t.Errorf("Expected no data rows, got %d", len(page.Rows))
	}
}

func TestParseListPage_NoRowsIsStructural(t *testing.T) {
	_, err := ParseListPage([]byte(`<html><body><p>Service unavailable</p></body></html>`))
	if !model.IsFatal(err) {
		t.Errorf("Expected structural error, got %v", err)
	}
}

func TestParseListRow_BadTitleIsStructural(t *testing.T) {
	body := []byte(`<table><tr><th>h</th></tr><tr>
		<td><a href="/detail.page?P110=recorduid:1">Request for records</a></td>
		<td>abstract</td><td>November 3, 2015</td><td>Finance</td></tr></table>`)
	page, err := ParseListPage(body)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = ParseListRow(page.Rows[0], portalBase(t))
	if !model.IsFatal(err) {
		t.Errorf("Expected structural error, got %v", err)
	}
}

func TestParseDetailPage(t *testing.T) {
	page, err := ParseDetailPage(readFixture(t, "detail.html"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if page.Identifier != "FIN-2011-00184" {
		t.Errorf("Expected identifier FIN-2011-00184, got %s", page.Identifier)
	}
	wantAbstract := "All briefing notes prepared for the Minister regarding the HST referendum.\n\n" +
		"Date range for records: January 1, 2011 to June 30, 2011."
	if page.Abstract != wantAbstract {
		t.Errorf("Unexpected abstract:\n%q\nwant\n%q", page.Abstract, wantAbstract)
	}
	if page.ApplicantType != "Political Party" {
		t.Errorf("Expected Political Party, got %q", page.ApplicantType)
	}
	if page.Organization != "Finance" {
		t.Errorf("Expected Finance, got %q", page.Organization)
	}
	if page.ProcessingFee != "45.00" {
		t.Errorf("Expected 45.00, got %q", page.ProcessingFee)
	}
	if page.Date != "2015-11-03" {
		t.Errorf("Expected 2015-11-03, got %q", page.Date)
	}

	if len(page.Letters) != 1 || page.Letters[0].Title != "Letter.pdf" {
		t.Errorf("Unexpected letters: %+v", page.Letters)
	}
	if len(page.Notes) != 0 {
		t.Errorf("Expected no notes, got %+v", page.Notes)
	}
	if len(page.Files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(page.Files))
	}
	if page.Files[0].ByteSizeLabel != "2.3 MB" {
		t.Errorf("Expected 2.3 MB, got %q", page.Files[0].ByteSizeLabel)
	}
	if page.Files[1].URL != "/ibc/download/FIN-2011-00184 Records.xlsx" {
		t.Errorf("Unexpected file url %q", page.Files[1].URL)
	}

	wantLabels := []string{"Applicant Type", "Ministry", "Fees paid by applicant", "Publication Date", "Letters", "Files"}
	if strings.Join(page.Labels, "|") != strings.Join(wantLabels, "|") {
		t.Errorf("Unexpected labels: %v", page.Labels)
	}
}

func TestParseDetailPage_EmptyAttachmentList(t *testing.T) {
	body := []byte(`<div class="saquery_searchResult_ibc">
		<h3>FOI Request - FIN-2011-00184</h3>
		<div><b>Files</b></div>
		<ul></ul>
	</div>`)

	_, err := ParseDetailPage(body)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if model.IsFatal(err) {
		t.Error("Expected empty attachment list to be scoped to the record")
	}
}

func TestParseDetailPage_MissingContainer(t *testing.T) {
	_, err := ParseDetailPage([]byte(`<html><body><h3>Not found</h3></body></html>`))
	if !model.IsFatal(err) {
		t.Errorf("Expected structural error, got %v", err)
	}
}
