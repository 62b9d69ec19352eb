package forms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"example.com/backstage/services/procurement/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// defaultReportWindowDays is how far back the report form starts by default
const defaultReportWindowDays = 30

// Download is a PDF or CSV report handed over as an opaque file
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Downloader delivers a report file to staff and returns where it went
type Downloader interface {
	Save(ctx context.Context, d Download) (string, error)
}

// DirDownloader writes downloads into a directory
type DirDownloader struct {
	Dir string
}

// Save writes the file, creating the directory if needed
func (d DirDownloader) Save(ctx context.Context, download Download) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create download directory")
	}

	path := filepath.Join(d.Dir, filepath.Base(download.FileName))
	if err := os.WriteFile(path, download.Data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}

// ReportFileName names a downloaded report after its date range
func ReportFileName(startDate, endDate string, format models.ReportFormat) string {
	return fmt.Sprintf("report_%s_%s.%s", startDate, endDate, format.Extension())
}

// ReportOutcome is either a parsed JSON report or a downloaded file
type ReportOutcome struct {
	Report   *models.Report
	Download *Download
	// SavedTo is where the Downloader put the file
	SavedTo string
}

// ReportForm requests delivery reports
type ReportForm struct {
	generator  ReportGenerator
	downloader Downloader
	deps       Deps

	mu          sync.Mutex
	startDate   string
	endDate     string
	detailed    bool
	format      models.ReportFormat
	fieldErrors FieldErrors
	loading     bool
	serverError string
	outcome     *ReportOutcome
}

// NewReportForm creates a report form covering the last 30 days, detailed,
// as JSON. downloader may be nil when only JSON reports are requested.
func NewReportForm(generator ReportGenerator, downloader Downloader, deps Deps) *ReportForm {
	deps = deps.withDefaults()
	today := deps.Now().In(deps.Location)

	return &ReportForm{
		generator:   generator,
		downloader:  downloader,
		deps:        deps,
		startDate:   today.AddDate(0, 0, -defaultReportWindowDays).Format(models.DateLayout),
		endDate:     today.Format(models.DateLayout),
		detailed:    true,
		format:      models.FormatJSON,
		fieldErrors: FieldErrors{},
	}
}

// SetStartDate sets the first day of the report (YYYY-MM-DD)
func (f *ReportForm) SetStartDate(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startDate = strings.TrimSpace(date)
}

// SetEndDate sets the last day of the report (YYYY-MM-DD)
func (f *ReportForm) SetEndDate(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endDate = strings.TrimSpace(date)
}

// SetDetailed chooses between per-delivery lines and grouped totals
func (f *ReportForm) SetDetailed(detailed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailed = detailed
}

// SetFormat sets the report format
func (f *ReportForm) SetFormat(format models.ReportFormat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.format = format
}

// Params returns the request the form would send
func (f *ReportForm) Params() models.ReportParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paramsLocked()
}

func (f *ReportForm) paramsLocked() models.ReportParams {
	return models.ReportParams{
		StartDate: f.startDate,
		EndDate:   f.endDate,
		Detailed:  f.detailed,
		Format:    f.format,
	}
}

// FieldErrors returns a copy of the current field errors
func (f *ReportForm) FieldErrors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fieldErrors.clone()
}

// Loading reports whether a report is being generated
func (f *ReportForm) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// ServerError returns the message of the last failed request
func (f *ReportForm) ServerError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.serverError
}

// Outcome returns the last successful result, nil after a failure
func (f *ReportForm) Outcome() *ReportOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

// Validate checks the dates and format
func (f *ReportForm) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *ReportForm) validateLocked() bool {
	f.fieldErrors = validateInput(reportInput{
		StartDate: f.startDate,
		EndDate:   f.endDate,
		Format:    string(f.format),
	})
	return len(f.fieldErrors) == 0
}

// Generate requests the report. JSON reports are parsed into a Report whose
// layout follows the response; PDF and CSV are handed to the Downloader
// without being looked at.
func (f *ReportForm) Generate(ctx context.Context) (*ReportOutcome, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.serverError = ""
	f.outcome = nil
	if !f.validateLocked() {
		f.mu.Unlock()
		return nil, ErrInvalid
	}
	params := f.paramsLocked()
	f.loading = true
	f.mu.Unlock()

	outcome, err := f.generate(ctx, params)

	f.mu.Lock()
	f.loading = false
	f.outcome = outcome
	message := ""
	if err != nil {
		message = describeFailure(err).messageOr("Failed to generate report.")
		f.serverError = message
	}
	f.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("start_date", params.StartDate).Str("end_date", params.EndDate).Str("format", string(params.Format)).Msg("Failed to generate report")
		f.deps.Notifier.Notify(ctx, failed(message))
		return nil, err
	}

	if outcome.Download != nil {
		log.Info().Str("file", outcome.Download.FileName).Str("saved_to", outcome.SavedTo).Msg("Report downloaded")
		f.deps.Notifier.Notify(ctx, success(fmt.Sprintf("%s report downloaded!", params.Format)))
	} else {
		log.Info().Str("kind", outcome.Report.Kind().String()).Int("rows", outcome.Report.Len()).Msg("Report generated")
		f.deps.Notifier.Notify(ctx, success("Report generated successfully!"))
	}
	return outcome, nil
}

func (f *ReportForm) generate(ctx context.Context, params models.ReportParams) (*ReportOutcome, error) {
	raw, err := f.generator.GenerateReport(ctx, params)
	if err != nil {
		return nil, err
	}

	if params.Format == models.FormatJSON {
		wire, err := raw.DeliveryReport()
		if err != nil {
			return nil, err
		}
		report := wire.Report()
		return &ReportOutcome{Report: &report}, nil
	}

	download := &Download{
		FileName:    ReportFileName(params.StartDate, params.EndDate, params.Format),
		ContentType: raw.ContentType,
		Data:        raw.Body,
	}
	outcome := &ReportOutcome{Download: download}
	if f.downloader == nil {
		return outcome, nil
	}

	savedTo, err := f.downloader.Save(ctx, *download)
	if err != nil {
		return nil, err
	}
	outcome.SavedTo = savedTo
	return outcome, nil
}
