package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume
2025-10-22,229.5,232.1,228.9,231.4,51234000
2025-10-23,231.6,233.0,230.2,232.8,48765000
`

func TestHTTPFetcherFetch(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"s":  q.Get("s"),
			"d1": q.Get("d1"),
			"d2": q.Get("d2"),
			"i":  q.Get("i"),
		}
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, 5*time.Second)

	rows, err := f.Fetch(context.Background(), "AAPL", "2025-09-23", "2025-10-23")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "aapl", gotQuery["s"])
	assert.Equal(t, "20250923", gotQuery["d1"])
	assert.Equal(t, "20251023", gotQuery["d2"])
	assert.Equal(t, "d", gotQuery["i"])

	assert.Equal(t, "2025-10-22", rows[0].Date)
	assert.Equal(t, 231.4, rows[0].Close)
	assert.Equal(t, int64(48765000), rows[1].Volume)
}

func TestHTTPFetcherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, 5*time.Second)

	_, err := f.Fetch(context.Background(), "BADSYM", "2025-09-23", "2025-10-23")
	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())
}

func TestHTTPFetcherEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Date,Open,High,Low,Close,Volume\n"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, 5*time.Second)

	_, err := f.Fetch(context.Background(), "GHOST", "2025-09-23", "2025-10-23")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data returned for GHOST")
}

func TestHTTPFetcherBadCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Date,Open,High,Low,Close,Volume\n2025-10-22,not-a-number,1,1,1,1\n"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, 5*time.Second)

	_, err := f.Fetch(context.Background(), "AAPL", "2025-09-23", "2025-10-23")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse quote data")
}
