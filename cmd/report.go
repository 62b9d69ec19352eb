package cmd

import (
	"example.com/backstage/services/procurement/internal/forms"
	"example.com/backstage/services/procurement/internal/models"
	"example.com/backstage/services/procurement/internal/views"

	"github.com/spf13/cobra"
)

var (
	reportFrom    string
	reportTo      string
	reportSummary bool
	reportFormat  string
	reportRaw     bool
	reportOut     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a delivery report for a date range",
	Long: `Generate a delivery report. JSON reports are rendered as a table (or as
raw JSON with --raw); PDF and CSV reports are written to --out as
report_{from}_{to}.{ext}. The range defaults to the last 30 days.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "first day of the report, YYYY-MM-DD")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "last day of the report, YYYY-MM-DD")
	reportCmd.Flags().BoolVar(&reportSummary, "summary", false, "group rows by supplier, product type and variety")
	reportCmd.Flags().StringVar(&reportFormat, "format", string(models.FormatJSON), "report format (JSON, PDF, CSV)")
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "print JSON reports as indented JSON")
	reportCmd.Flags().StringVar(&reportOut, "out", ".", "directory PDF and CSV reports are written to")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	form := forms.NewReportForm(a.client, forms.DirDownloader{Dir: reportOut}, a.deps(nil))
	if reportFrom != "" {
		form.SetStartDate(reportFrom)
	}
	if reportTo != "" {
		form.SetEndDate(reportTo)
	}
	form.SetDetailed(!reportSummary)

	format, err := models.ParseReportFormat(reportFormat)
	if err != nil {
		format = models.ReportFormat(reportFormat)
	}
	form.SetFormat(format)

	outcome, err := form.Generate(cmd.Context())
	if err != nil {
		if fieldErrors := form.FieldErrors(); len(fieldErrors) > 0 {
			cmd.PrintErrln("The report was not generated:")
			printFieldErrors(cmd, fieldErrors)
		}
		return err
	}

	if outcome.Download != nil {
		cmd.Printf("Saved %s\n", outcome.SavedTo)
		return nil
	}
	if reportRaw {
		return views.RenderRawJSON(cmd.OutOrStdout(), *outcome.Report)
	}
	return views.RenderReport(cmd.OutOrStdout(), *outcome.Report)
}
