package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/messaging"
	"example.com/backstage/services/procurement/internal/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the report export worker",
	Long: `Start the background worker exporting the delivery report of the trailing
window to worker.output_dir every worker.interval`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	exporter := &reportExporter{
		generator: a.client,
		publisher: a.publisher,
		cfg:       cfg.Worker,
		location:  cfg.Forms.Location(),
		now:       time.Now,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Dur("interval", cfg.Worker.Interval).Str("output_dir", cfg.Worker.OutputDir).Msg("Starting report export job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.Interval),
			gocron.NewTask(func() {
				if _, err := exporter.Export(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to export report")
				}
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		a.metrics.SetHealth("worker", true)

		<-ctx.Done()

		a.metrics.SetHealth("worker", false)
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// reportExporter writes the report of the trailing window and announces it
type reportExporter struct {
	generator forms.ReportGenerator
	publisher *messaging.Publisher
	cfg       config.WorkerConfig
	location  *time.Location
	now       func() time.Time
}

// Export generates one report file and returns where it was written
func (e *reportExporter) Export(ctx context.Context) (string, error) {
	format, err := models.ParseReportFormat(e.cfg.Format)
	if err != nil {
		return "", err
	}

	downloader := forms.DirDownloader{Dir: e.cfg.OutputDir}
	form := forms.NewReportForm(e.generator, downloader, forms.Deps{
		Notifier: forms.LogNotifier{},
		Location: e.location,
		Now:      e.now,
	})

	today := e.now().In(e.location)
	form.SetStartDate(today.AddDate(0, 0, -e.cfg.WindowDays).Format(models.DateLayout))
	form.SetEndDate(today.Format(models.DateLayout))
	form.SetDetailed(e.cfg.Detailed)
	form.SetFormat(format)
	params := form.Params()

	outcome, err := form.Generate(ctx)
	if err != nil {
		return "", err
	}

	path, size := outcome.SavedTo, 0
	if outcome.Download != nil {
		size = len(outcome.Download.Data)
	} else {
		data, err := json.MarshalIndent(outcome.Report, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "failed to encode report")
		}
		path, err = downloader.Save(ctx, forms.Download{
			FileName:    forms.ReportFileName(params.StartDate, params.EndDate, format),
			ContentType: format.ContentType(),
			Data:        data,
		})
		if err != nil {
			return "", err
		}
		size = len(data)
	}

	log.Info().Str("path", path).Int("size", size).Msg("Report exported")

	if err := e.publisher.Publish(ctx, messaging.SubjectReportExported, messaging.ReportExported{
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Format:    string(format),
		Path:      path,
		Size:      size,
	}); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to publish report export")
	}
	return path, nil
}
