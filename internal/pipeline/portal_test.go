package pipeline

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/openinfo/internal/model"
)

// fakeRecord describes one request as the portal renders it
type fakeRecord struct {
	id           int
	date         string // Portal form, e.g. "November 3, 2015"
	organization string
	abstract     string
	skipFee      bool
	letters      []string
	files        []string
}

func (r fakeRecord) identifier() string {
	return fmt.Sprintf("FIN-2015-%05d", r.id)
}

func (r fakeRecord) listRow() string {
	return fmt.Sprintf(`<tr>
	<td><a href=" /ibc/search/detail.page?P110=recorduid%%3A%d&amp;config=ibc&amp;title=FOI+Request">FOI Request - %s</a></td>
	<td>%s...</td>
	<td>%s</td>
	<td>%s</td>
</tr>`, r.id, r.identifier(), r.abstract[:len(r.abstract)/2], r.date, r.organization)
}

func (r fakeRecord) detailPage() string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="saquery_searchResult_ibc">`)
	fmt.Fprintf(&b, "<h3>FOI Request - %s</h3>\n", r.identifier())
	b.WriteString("<p><b>Applicant Type:</b> Individual</p>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n<h4>Details</h4>\n", r.abstract)
	fmt.Fprintf(&b, "<div><b>Ministry:</b> %s</div>\n", r.organization)
	if !r.skipFee {
		b.WriteString("<div><b>Fees paid by applicant:</b> $0.00</div>\n")
	}
	fmt.Fprintf(&b, "<div><b>Publication Date:</b> %s</div>\n", r.date)
	for label, names := range map[string][]string{"Letters": r.letters, "Files": r.files} {
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "<div><b>%s</b></div>\n<ul>\n", label)
		for _, name := range names {
			fmt.Fprintf(&b, `<li><a href="/ibc/download/%s %s">%s</a> (0.1MB)</li>`+"\n", r.identifier(), name, name)
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

// fakePortal serves a month selector, paginated month listings, detail pages
// and downloads
type fakePortal struct {
	server *httptest.Server

	mu        sync.Mutex
	months    map[string][][]fakeRecord // "month:11&year:2015" -> pages
	downloads map[string]string         // path -> body
	requests  []string                  // request URIs in order
	cookieOK  bool
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{
		months:    make(map[string][][]fakeRecord),
		downloads: make(map[string]string),
	}
	p.server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, r.URL.RequestURI())

	switch {
	case r.URL.Path == "/":
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc", Path: "/"})
		_, _ = fmt.Fprint(w, "<html>home</html>")

	case r.URL.Path == "/ibc/search/results.page":
		if _, err := r.Cookie("JSESSIONID"); err == nil {
			p.cookieOK = true
		}
		q := r.URL.Query()
		if q.Get("date") == "30" {
			p.writeSelector(w)
			return
		}
		p.writeListing(w, q)

	case r.URL.Path == "/ibc/search/detail.page":
		id := strings.TrimPrefix(r.URL.Query().Get("P110"), "recorduid:")
		for _, pages := range p.months {
			for _, page := range pages {
				for _, rec := range page {
					if fmt.Sprint(rec.id) == id {
						_, _ = fmt.Fprint(w, rec.detailPage())
						return
					}
				}
			}
		}
		http.NotFound(w, r)

	case strings.HasPrefix(r.URL.Path, "/ibc/download/"):
		body, ok := p.downloads[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, body)

	default:
		http.NotFound(w, r)
	}
}

func (p *fakePortal) writeSelector(w http.ResponseWriter) {
	var b strings.Builder
	b.WriteString(`<html><body><select id="monthSort"><option value="">Select a month</option>`)
	for key := range p.months {
		month, year, _ := strings.Cut(key, "&")
		fmt.Fprintf(&b, `<option value="/ibc/search/results.page?config=ibc&amp;P110=%s&amp;P110=%s">%s</option>`, month, year, key)
	}
	b.WriteString(`</select><table><tr><th>Title</th></tr></table></body></html>`)
	_, _ = fmt.Fprint(w, b.String())
}

func (p *fakePortal) writeListing(w http.ResponseWriter, q map[string][]string) {
	var month, year string
	for _, v := range q["P110"] {
		switch {
		case strings.HasPrefix(v, "month:"):
			month = v
		case strings.HasPrefix(v, "year:"):
			year = v
		}
	}
	pages := p.months[month+"&"+year]

	var index int
	_, _ = fmt.Sscan(strings.Join(q["index"], ""), &index)
	n := index / 100

	var b strings.Builder
	b.WriteString(`<html><body><table><tr><th>Title</th><th>Abstract</th><th>Date</th><th>Ministry</th></tr>`)
	if n < len(pages) {
		for _, rec := range pages[n] {
			b.WriteString(rec.listRow())
		}
	}
	b.WriteString(`</table><div class="pagination">`)
	if n+1 < len(pages) {
		fmt.Fprintf(&b, `<a href="?index=%d">&#9658;</a>`, index+100)
	}
	b.WriteString(`</div></body></html>`)
	_, _ = fmt.Fprint(w, b.String())
}

func (p *fakePortal) requested(prefix string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, uri := range p.requests {
		if strings.HasPrefix(uri, prefix) {
			out = append(out, uri)
		}
	}
	return out
}

func (p *fakePortal) config(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Portal.BaseURL = p.server.URL
	cfg.Portal.HomeURL = p.server.URL + "/"
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.HTTP.MaxRetries = 1
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Storage.DownloadDir = t.TempDir()
	return cfg
}
