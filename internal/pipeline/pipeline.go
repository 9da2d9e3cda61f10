package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/openinfo/internal/cache"
	"github.com/ppiankov/openinfo/internal/metrics"
	"github.com/ppiankov/openinfo/internal/model"
	"github.com/ppiankov/openinfo/internal/store"
	"github.com/rs/zerolog"
)

// Pipeline owns the per-run collaborators: one portal session, one record
// store and one blob store
type Pipeline struct {
	fetcher    *Fetcher
	walker     *Walker
	records    *store.SQLiteStore
	aggregator *metrics.Aggregator
	renderer   *Renderer
}

// NewPipeline opens the stores and the portal session described by cfg
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	fetcher, err := NewFetcher(cfg, cache.FromConfig(cfg.Cache))
	if err != nil {
		return nil, err
	}

	records, err := store.OpenSQLite(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	blobs, err := store.NewFSBlobStore(cfg.Storage.DownloadDir)
	if err != nil {
		_ = records.Close()
		return nil, err
	}

	analyzer := metrics.NewAnalyzer(metrics.ExecRunner{}, cfg.Tools)

	return &Pipeline{
		fetcher:    fetcher,
		walker:     NewWalker(fetcher, fetcher.BaseURL(), cfg.Portal),
		records:    records,
		aggregator: metrics.NewAggregator(blobs, records, fetcher, analyzer),
		renderer:   NewRenderer(os.Stderr),
	}, nil
}

// Close releases the record store
func (p *Pipeline) Close() error {
	return p.records.Close()
}

// Scrape walks the listings for date ("", "YYYY" or "YYYY-MM") and upserts
// every accepted record. The report is returned even when the run aborts.
func (p *Pipeline) Scrape(ctx context.Context, date string) (*model.RunReport, error) {
	report := model.NewRunReport("scrape")
	err := p.scrape(ctx, date, report)
	report.Finish(err)
	return report, err
}

func (p *Pipeline) scrape(ctx context.Context, date string, report *model.RunReport) error {
	log := zerolog.Ctx(ctx)

	if err := p.fetcher.Bootstrap(ctx); err != nil {
		return err
	}

	urls, err := p.walker.MonthURLs(ctx, date)
	if err != nil {
		return err
	}

	for _, monthURL := range urls {
		log.Info().Str("url", monthURL).Msg("Walking month")
		err := p.walker.Walk(ctx, monthURL, report, func(record *model.Record) error {
			if err := p.records.Upsert(ctx, record); err != nil {
				return fmt.Errorf("save %s: %w", record, err)
			}
			log.Debug().Str("identifier", record.Identifier).Str("id", record.ID).Msg("Saved record")
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Download fetches and measures the documents of every stored record
func (p *Pipeline) Download(ctx context.Context) (*model.RunReport, error) {
	report := model.NewRunReport("download")
	err := p.aggregator.Run(ctx, report)
	report.Finish(err)
	return report, err
}

// Records lists stored records, newest first
func (p *Pipeline) Records(ctx context.Context, limit int) ([]*model.Record, error) {
	return p.records.List(ctx, limit)
}

// RenderReport writes the run report to jsonPath (if set) and a summary to
// stderr
func (p *Pipeline) RenderReport(report *model.RunReport, jsonPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
	}
	p.renderer.RenderSummary(report, verbose)
	return nil
}
