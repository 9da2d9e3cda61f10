package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/openinfo/internal/extract"
	"github.com/ppiankov/openinfo/internal/model"
	"github.com/ppiankov/openinfo/internal/validate"
	"github.com/rs/zerolog"
)

var datePattern = regexp.MustCompile(`\A(\d{4})(?:-(\d{1,2}))?\z`)

// PageFetcher returns the body of a portal page
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) ([]byte, error)
}

// Walker enumerates month listings and walks their result pages
type Walker struct {
	fetcher   PageFetcher
	validator *validate.Validator
	base      *url.URL
	searchURL string
	pageSize  int
}

// NewWalker creates a walker for the portal described by cfg
func NewWalker(fetcher PageFetcher, base *url.URL, cfg model.PortalConfig) *Walker {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Walker{
		fetcher:   fetcher,
		validator: validate.NewValidator(),
		base:      base,
		searchURL: strings.TrimSuffix(base.String(), "/") + cfg.SearchPath,
		pageSize:  pageSize,
	}
}

// MonthURLs returns the month-scoped listing URLs for date, which is empty
// (every month), "YYYY" or "YYYY-MM"
func (w *Walker) MonthURLs(ctx context.Context, date string) ([]string, error) {
	var year, month string
	if date != "" {
		m := datePattern.FindStringSubmatch(date)
		if m == nil {
			return nil, fmt.Errorf("invalid date %q: expected YYYY or YYYY-MM", date)
		}
		year, month = m[1], m[2]
	}

	if month != "" {
		n, err := strconv.Atoi(month)
		if err != nil || n < 1 || n > 12 {
			return nil, fmt.Errorf("invalid month in %q", date)
		}
		return []string{fmt.Sprintf("%s&P110=month:%d&P110=year:%s&size=%d", w.searchURL, n, year, w.pageSize)}, nil
	}

	body, err := w.fetcher.FetchWithRetry(ctx, w.searchURL+"&date=30")
	if err != nil {
		return nil, fmt.Errorf("fetch month selector: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	options := doc.Find("select#monthSort option")
	if options.Length() == 0 {
		return nil, model.Structuralf("listing has no month selector")
	}

	var urls []string
	var parseErr error
	options.Slice(1, goquery.ToEnd).EachWithBreak(func(_ int, option *goquery.Selection) bool {
		value := strings.TrimSpace(option.AttrOr("value", ""))
		if value == "" || (year != "" && !strings.Contains(value, "year:"+year)) {
			return true
		}
		ref, err := url.Parse(value)
		if err != nil {
			parseErr = model.Structuralf("month option %q: %v", value, err)
			return false
		}
		urls = append(urls, fmt.Sprintf("%s&size=%d", w.base.ResolveReference(ref), w.pageSize))
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	zerolog.Ctx(ctx).Debug().Int("months", len(urls)).Str("date", date).Msg("Resolved month listings")
	return urls, nil
}

// Walk fetches monthURL at offsets 0, pageSize, 2*pageSize... while the page
// shows a "next" control, and calls fn for every record that passes
// validation. Rejected records are recorded on report and skipped. Fetch
// failures, structural errors and errors from fn end the walk.
func (w *Walker) Walk(ctx context.Context, monthURL string, report *model.RunReport, fn func(*model.Record) error) error {
	log := zerolog.Ctx(ctx)

	for index := 0; ; index += w.pageSize {
		pageURL := fmt.Sprintf("%s&index=%d", monthURL, index)
		body, err := w.fetcher.FetchWithRetry(ctx, pageURL)
		if err != nil {
			return fmt.Errorf("fetch list %s: %w", pageURL, err)
		}

		page, err := extract.ParseListPage(body)
		if err != nil {
			return fmt.Errorf("%s: %w", pageURL, err)
		}
		log.Debug().Str("url", pageURL).Int("rows", len(page.Rows)).Bool("next", page.HasNext).Msg("Fetched results page")

		for _, tr := range page.Rows {
			report.Processed++

			list, err := extract.ParseListRow(tr, w.base)
			if err != nil {
				return fmt.Errorf("%s: %w", pageURL, err)
			}

			record, err := w.record(ctx, list)
			if errors.Is(err, model.ErrValidation) {
				log.Warn().Err(err).Str("url", list.URL).Msg("Record rejected")
				report.Record(list.URL, err)
				continue
			}
			if err != nil {
				return err
			}

			if err := fn(record); err != nil {
				return err
			}
			report.Accepted++
		}

		if !page.HasNext {
			return nil
		}
	}
}

// record fetches the detail page for a list row and cross-validates them
func (w *Walker) record(ctx context.Context, list *extract.ListRow) (*model.Record, error) {
	body, err := w.fetcher.FetchWithRetry(ctx, list.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch detail %s: %w", list.URL, err)
	}

	detail, err := extract.ParseDetailPage(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", list.Identifier, err)
	}

	result, err := w.validator.Validate(list, detail)
	if result != nil && len(result.Unexpected) > 0 {
		zerolog.Ctx(ctx).Info().
			Str("url", list.URL).
			Strs("labels", result.Unexpected).
			Msg("Unexpected labels on detail page")
	}
	if err != nil {
		return nil, err
	}

	return validate.Merge(list, detail), nil
}
