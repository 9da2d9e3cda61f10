package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/ppiankov/openinfo/internal/model"
)

// Renderer writes run reports and record listings
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer writing human output to out
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints the counts of a run and, when verbose, every problem
func (r *Renderer) RenderSummary(report *model.RunReport, verbose bool) {
	_, _ = fmt.Fprintf(r.out, "\n%s: %d processed, %d accepted, %d problems (%s)\n",
		report.Action, report.Processed, report.Accepted, len(report.Problems),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	if report.Fatal != "" {
		_, _ = fmt.Fprintf(r.out, "Aborted: %s\n", report.Fatal)
	}

	counts := report.CountByKind()
	if len(counts) == 0 {
		return
	}

	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(table.Row{"Problem", "Count"})
	for _, kind := range kinds {
		t.AppendRow(table.Row{kind, counts[model.ProblemKind(kind)]})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	if !verbose {
		return
	}

	p := table.NewWriter()
	p.SetOutputMirror(r.out)
	p.AppendHeader(table.Row{"Kind", "Ref", "Message"})
	for _, problem := range report.Problems {
		p.AppendRow(table.Row{problem.Kind, problem.Ref, problem.Message})
	}
	p.SetStyle(table.StyleRounded)
	p.Render()
}

// RenderRecords prints one row per record with its aggregate metrics
func (r *Renderer) RenderRecords(records []*model.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.AppendHeader(table.Row{"Identifier", "Date", "Ministry", "Docs", "Bytes", "Pages", "Rows", "Duration (s)"})
	for _, rec := range records {
		docs := len(rec.Letters) + len(rec.Notes) + len(rec.Files)
		t.AppendRow(table.Row{
			rec.Identifier, rec.Date, rec.Organization, docs,
			rec.ByteSize, rec.NumberOfPages, rec.NumberOfRows, rec.Duration,
		})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(records)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
