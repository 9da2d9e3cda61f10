package metrics

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/openinfo/internal/model"
	"github.com/rs/zerolog"
)

var (
	pdfPagesPattern   = regexp.MustCompile(`(?m)^Pages: +(\d+)$`)
	tiffPageNumber    = regexp.MustCompile(`\bPage Number: (\d+)`)
	tiffMultiPageFlag = "Subfile Type: multi-page document"
)

// Analyzer computes the length metric of a downloaded document
type Analyzer struct {
	runner CommandRunner
	tools  model.ToolsConfig
}

// NewAnalyzer creates an analyzer that shells out through runner
func NewAnalyzer(runner CommandRunner, tools model.ToolsConfig) *Analyzer {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Analyzer{runner: runner, tools: tools}
}

// Analyze sets the page, row or duration metric of doc from the file at
// localPath, according to doc.MediaType. On failure the metric stays unset
// and the error wraps model.ErrAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, doc *model.Document, localPath string) error {
	zerolog.Ctx(ctx).Debug().Str("path", localPath).Str("media_type", doc.MediaType).Msg("Measuring document")

	switch doc.MediaType {
	case MediaPDF:
		pages, err := a.pdfPages(ctx, localPath)
		if err != nil {
			return err
		}
		doc.NumberOfPages = &pages

	case MediaTIFF:
		pages, err := a.tiffPages(ctx, localPath)
		if err != nil {
			return err
		}
		doc.NumberOfPages = &pages

	case MediaXLS:
		rows, err := CountLegacyWorkbookRows(localPath)
		if err != nil {
			return err
		}
		doc.NumberOfRows = &rows

	case MediaXLSM, MediaXLSX:
		rows, err := CountWorkbookRows(localPath)
		if err != nil {
			return err
		}
		doc.NumberOfRows = &rows

	case MediaCSV:
		rows, err := CountCSVRows(localPath)
		if err != nil {
			return err
		}
		doc.NumberOfRows = &rows

	case MediaMP3, MediaWAV, MediaMP4:
		seconds, err := a.duration(ctx, localPath)
		if err != nil {
			return err
		}
		doc.Duration = &seconds

	default:
		return model.Analysisf("no analyzer for media type %q", doc.MediaType)
	}
	return nil
}

func (a *Analyzer) pdfPages(ctx context.Context, path string) (int, error) {
	stdout, stderr, err := a.runner.Run(ctx, a.tools.PDFInfo, path)
	if err != nil {
		return 0, model.Analysisf("%s %s: %v: %s", a.tools.PDFInfo, path, err, strings.TrimSpace(string(stderr)))
	}
	return parsePDFPages(string(stdout))
}

func parsePDFPages(output string) (int, error) {
	m := pdfPagesPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, model.Analysisf("no Pages field in pdfinfo output")
	}
	return strconv.Atoi(m[1])
}

// tiffinfo exits non-zero on some files whose directories it still prints,
// so output wins over the exit status
func (a *Analyzer) tiffPages(ctx context.Context, path string) (int, error) {
	stdout, stderr, err := a.runner.Run(ctx, a.tools.TIFFInfo, path)
	if err != nil && len(stdout) == 0 {
		return 0, model.Analysisf("%s %s: %v: %s", a.tools.TIFFInfo, path, err, strings.TrimSpace(string(stderr)))
	}
	return parseTIFFPages(string(stdout))
}

func parseTIFFPages(output string) (int, error) {
	if !strings.Contains(output, tiffMultiPageFlag) {
		return 1, nil
	}
	matches := tiffPageNumber.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, model.Analysisf("multi-page tiff without page numbers")
	}
	last, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0, model.Analysisf("tiff page number: %v", err)
	}
	return last + 1, nil
}

func (a *Analyzer) duration(ctx context.Context, path string) (float64, error) {
	stdout, stderr, err := a.runner.Run(ctx, a.tools.MediaInfo, path)
	if err != nil {
		return 0, model.Analysisf("%s %s: %v: %s", a.tools.MediaInfo, path, err, strings.TrimSpace(string(stderr)))
	}
	return ParseDuration(string(stdout))
}
