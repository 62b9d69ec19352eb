package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"example.com/backstage/services/procurement/internal/models"

	"github.com/pkg/errors"
)

// RawReport is an unparsed report response. Its body is JSON for the JSON
// format and an opaque file for PDF and CSV.
type RawReport struct {
	Format      models.ReportFormat
	ContentType string
	Body        []byte
}

// DeliveryReport decodes a JSON report body
func (r *RawReport) DeliveryReport() (models.DeliveryReport, error) {
	var report models.DeliveryReport
	if r.Format != models.FormatJSON {
		return report, errors.Errorf("cannot decode %s report as JSON", r.Format)
	}
	if err := json.Unmarshal(r.Body, &report); err != nil {
		return report, errors.Wrap(err, "failed to decode report")
	}
	return report, nil
}

// GenerateReport requests a delivery report. The body is returned as-is since
// its shape depends on the requested format.
func (c *Client) GenerateReport(ctx context.Context, params models.ReportParams) (*RawReport, error) {
	format := params.Format
	if format == "" {
		format = models.FormatJSON
	}

	query := url.Values{
		"startDate": {params.StartDate},
		"endDate":   {params.EndDate},
		"detailed":  {strconv.FormatBool(params.Detailed)},
		"format":    {string(format)},
	}

	resp, err := c.do(ctx, "generate_report", http.MethodGet, "/api/v1/reports", query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err, "failed to read %s report", format)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = format.ContentType()
	}

	return &RawReport{
		Format:      format,
		ContentType: contentType,
		Body:        body,
	}, nil
}
