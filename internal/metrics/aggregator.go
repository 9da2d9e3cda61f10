package metrics

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/ppiankov/openinfo/internal/model"
	"github.com/ppiankov/openinfo/internal/store"
	"github.com/rs/zerolog"
)

// Downloader fetches a document's bytes. A missing remote document must be
// reported as an error wrapping model.ErrDownload.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Aggregator downloads and measures a record's documents and totals the
// primary-bundle metrics onto the record
type Aggregator struct {
	blobs    store.BlobStore
	records  store.RecordStore
	fetcher  Downloader
	analyzer *Analyzer
}

// NewAggregator wires the aggregator's collaborators
func NewAggregator(blobs store.BlobStore, records store.RecordStore, fetcher Downloader, analyzer *Analyzer) *Aggregator {
	return &Aggregator{
		blobs:    blobs,
		records:  records,
		fetcher:  fetcher,
		analyzer: analyzer,
	}
}

// DocumentPath returns <year>/<month>/<record-id>/<document-title>. The id
// and title come from the portal and must each be a single path segment.
func DocumentPath(record *model.Record, doc *model.Document) (string, error) {
	date, err := time.Parse("2006-01-02", record.Date)
	if err != nil {
		return "", model.Validationf("record %s has unparsable date %q", record, record.Date)
	}
	if !pathSegment(record.ID) {
		return "", fmt.Errorf("%w: record %s has unusable id %q", model.ErrDownload, record, record.ID)
	}
	if !pathSegment(doc.Title) {
		return "", fmt.Errorf("%w: record %s has unusable document title %q", model.ErrDownload, record, doc.Title)
	}
	return path.Join(date.Format("2006"), date.Format("01"), record.ID, doc.Title), nil
}

func pathSegment(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Run aggregates every stored record
func (a *Aggregator) Run(ctx context.Context, report *model.RunReport) error {
	return a.records.Each(ctx, func(record *model.Record) error {
		report.Processed++
		if err := a.Aggregate(ctx, record, report); err != nil {
			return err
		}
		report.Accepted++
		return nil
	})
}

// Aggregate processes one record's documents in group order and persists
// the record. Per-document problems are recorded on report; only a store
// failure or cancellation is returned.
func (a *Aggregator) Aggregate(ctx context.Context, record *model.Record, report *model.RunReport) error {
	record.ResetMetrics()

	err := forEachDocument(record, func(doc *model.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.document(ctx, record, doc, report)
		return nil
	})
	if err != nil {
		return err
	}

	if err := a.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("save %s: %w", record, err)
	}
	return nil
}

func (a *Aggregator) document(ctx context.Context, record *model.Record, doc *model.Document, report *model.RunReport) {
	log := zerolog.Ctx(ctx)

	docPath, err := DocumentPath(record, doc)
	if err != nil {
		log.Warn().Err(err).Str("record", record.String()).Msg("Skipping document")
		report.Record(record.URL, err)
		return
	}

	if !a.blobs.Exists(docPath) {
		if err := a.download(ctx, doc, docPath); err != nil {
			log.Warn().Err(err).Str("url", doc.URL).Msg("Download failed")
			report.Record(doc.URL, err)
		}
	}

	if mediaType, ok := MediaTypeOf(docPath); !ok {
		err := fmt.Errorf("%w: %s: unrecognized media type", model.ErrAnalysis, docPath)
		log.Warn().Err(err).Msg("Skipping metrics")
		report.Record(docPath, err)
	} else {
		doc.MediaType = mediaType
		a.measure(ctx, doc, docPath, report)
	}

	class, err := Classify(doc.Title)
	if err != nil {
		log.Warn().Err(err).Str("path", docPath).Msg("Excluded from totals")
		report.Record(docPath, err)
		return
	}
	if class == ClassPrimary {
		addMetrics(record, doc)
	}
}

// measure records the byte size of a stored blob and computes its length
// metric unless one is already known
func (a *Aggregator) measure(ctx context.Context, doc *model.Document, docPath string, report *model.RunReport) {
	if !a.blobs.Exists(docPath) {
		return
	}

	size, err := a.blobs.Size(docPath)
	if err != nil {
		report.Record(docPath, fmt.Errorf("%w: %v", model.ErrAnalysis, err))
		return
	}
	doc.ByteSize = &size

	if doc.HasLength() {
		return
	}
	localPath, err := a.blobs.Path(docPath)
	if err != nil {
		report.Record(docPath, fmt.Errorf("%w: %v", model.ErrAnalysis, err))
		return
	}
	if err := a.analyzer.Analyze(ctx, doc, localPath); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", docPath).Msg("Analysis failed")
		report.Record(docPath, err)
	}
}

func (a *Aggregator) download(ctx context.Context, doc *model.Document, docPath string) error {
	body, err := a.fetcher.Download(ctx, doc.URL)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	n, err := a.blobs.Write(docPath, body)
	if err != nil {
		return fmt.Errorf("%w: store %s: %v", model.ErrDownload, docPath, err)
	}
	zerolog.Ctx(ctx).Info().Str("path", docPath).Int64("bytes", n).Msg("Downloaded")
	return nil
}

// forEachDocument visits documents in group order: letters, notes, files
func forEachDocument(record *model.Record, fn func(*model.Document) error) error {
	for _, group := range model.AttachmentGroups {
		docs := record.Group(group)
		for i := range *docs {
			if err := fn(&(*docs)[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// addMetrics adds a primary-bundle document's size and its one length metric
func addMetrics(record *model.Record, doc *model.Document) {
	if doc.ByteSize != nil {
		record.ByteSize += *doc.ByteSize
	}
	switch {
	case doc.NumberOfPages != nil:
		record.NumberOfPages += *doc.NumberOfPages
	case doc.NumberOfRows != nil:
		record.NumberOfRows += *doc.NumberOfRows
	case doc.Duration != nil:
		record.Duration += *doc.Duration
	}
}
