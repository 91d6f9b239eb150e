package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TextQLLabs/market-cap-tracker/internal/fetcher"
	"github.com/TextQLLabs/market-cap-tracker/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithBaseURL(srv.URL+"/"),
		WithGetter(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Client: srv.Client(),
			Retry:  resilience.RetryConfig{MaxAttempts: 1},
		})),
	)
}

func unix(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 5, 0, 0, 0, time.UTC).Unix()
}

func TestMonthlyCloses(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD"},
		"timestamp":[` +
		itoa(unix(2010, 10, 1)) + `,` + itoa(unix(2010, 11, 1)) + `,` + itoa(unix(2010, 12, 1)) + `],
		"indicators":{"quote":[{"close":[10.5,null,11.52]}]}}],"error":null}}`

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1mo", r.URL.Query().Get("interval"))
		assert.Equal(t, itoa(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC).Unix()), r.URL.Query().Get("period1"))
		_, _ = w.Write([]byte(body))
	})

	closes, err := c.MonthlyCloses(context.Background(), "AAPL", 2010)
	require.NoError(t, err)
	require.Len(t, closes, 2, "null closes are skipped")
	assert.Equal(t, time.Date(2010, 10, 31, 0, 0, 0, 0, time.UTC), closes[0].Date)
	assert.Equal(t, time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC), closes[1].Date)
	assert.InDelta(t, 11.52, closes[1].Price, 1e-9)
}

func TestChart_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := c.MonthlyCloses(context.Background(), "ENRNQ", 2010)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol may be delisted")
}

func TestChart_EmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	})

	_, err := c.Chart(context.Background(), "X", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSharesOutstanding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/AAPL", r.URL.Path)
		assert.Equal(t, "defaultKeyStatistics", r.URL.Query().Get("modules"))
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"defaultKeyStatistics":{"sharesOutstanding":{"raw":15204100096,"fmt":"15.2B"}}}],"error":null}}`))
	})

	shares, err := c.SharesOutstanding(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 15204100096, shares, 1)
}

func TestSharesOutstanding_Missing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{"defaultKeyStatistics":{}}],"error":null}}`))
	})

	_, err := c.SharesOutstanding(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMonthEnd(t *testing.T) {
	assert.Equal(t, time.Date(2012, 2, 29, 0, 0, 0, 0, time.UTC), monthEnd(time.Date(2012, 2, 1, 5, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2012, 12, 31, 0, 0, 0, 0, time.UTC), monthEnd(time.Date(2012, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
