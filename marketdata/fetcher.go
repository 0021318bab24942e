package marketdata

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quotron/quotron/errors"
)

// HTTPFetcher retrieves daily bars from a CSV quote endpoint
// (Date,Open,High,Low,Close,Volume rows, header line first).
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher against the given CSV endpoint.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads daily bars for itemID between startDate and endDate
// (ISO dates, inclusive). An item the source does not know yields an
// error; so does an empty result set.
func (f *HTTPFetcher) Fetch(ctx context.Context, itemID, startDate, endDate string) ([]Row, error) {
	reqURL, err := f.buildURL(itemID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build fetch request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch request for %s failed", itemID)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Newf("not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("unexpected status %d from quote source", resp.StatusCode)
	}

	rows, err := parseCSV(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse quote data for %s", itemID)
	}
	if len(rows) == 0 {
		return nil, errors.Newf("no data returned for %s", itemID)
	}

	return rows, nil
}

func (f *HTTPFetcher) buildURL(itemID, startDate, endDate string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid base URL %q", f.baseURL)
	}

	q := u.Query()
	q.Set("s", strings.ToLower(itemID))
	q.Set("d1", compactDate(startDate))
	q.Set("d2", compactDate(endDate))
	q.Set("i", "d") // daily interval
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// compactDate turns "2025-10-23" into "20251023", the form the quote
// endpoint expects.
func compactDate(iso string) string {
	return strings.ReplaceAll(iso, "-", "")
}

func parseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip the header line when present
	if strings.EqualFold(records[0][0], "date") {
		records = records[1:]
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseRecord(rec []string) (Row, error) {
	open, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return Row{}, errors.Wrapf(err, "bad open value %q", rec[1])
	}
	high, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return Row{}, errors.Wrapf(err, "bad high value %q", rec[2])
	}
	low, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return Row{}, errors.Wrapf(err, "bad low value %q", rec[3])
	}
	closePrice, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return Row{}, errors.Wrapf(err, "bad close value %q", rec[4])
	}
	volume, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return Row{}, errors.Wrapf(err, "bad volume value %q", rec[5])
	}

	return Row{
		Date:   rec[0],
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
