// Package edgar reads XBRL company facts from the SEC EDGAR data API.
package edgar

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/TextQLLabs/market-cap-tracker/internal/fetcher"
	"github.com/TextQLLabs/market-cap-tracker/internal/source"
	"github.com/TextQLLabs/market-cap-tracker/internal/xbrl"
)

const defaultBaseURL = "https://data.sec.gov"

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL. An empty u keeps the
// default.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithGetter overrides the HTTP fetcher.
func WithGetter(g fetcher.Getter) Option {
	return func(c *Client) {
		c.getter = g
	}
}

// Client fetches company facts. It implements source.FactsSource.
type Client struct {
	baseURL   string
	userAgent string
	getter    fetcher.Getter
}

var _ source.FactsSource = (*Client)(nil)

// NewClient creates an EDGAR client. The SEC requires a User-Agent naming
// the requester and a contact address.
func NewClient(userAgent string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, eris.New("edgar: user agent is required")
	}
	c := &Client{baseURL: defaultBaseURL, userAgent: userAgent}
	for _, o := range opts {
		o(c)
	}
	if c.getter == nil {
		c.getter = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{UserAgent: userAgent})
	}
	return c, nil
}

// PadCIK normalizes a CIK to the ten-digit zero-padded form used in EDGAR
// URLs. It accepts an optional "CIK" prefix.
func PadCIK(cik string) (string, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(cik)), "CIK")
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 || n > 9_999_999_999 {
		return "", eris.Errorf("edgar: invalid cik %q", cik)
	}
	return fmt.Sprintf("%010d", n), nil
}

// CompanyFacts returns every XBRL fact the registrant has filed.
func (c *Client) CompanyFacts(ctx context.Context, cik string) (*xbrl.CompanyFacts, error) {
	padded, err := PadCIK(cik)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + "/api/xbrl/companyfacts/CIK" + padded + ".json"

	body, err := c.getter.Get(ctx, u, http.Header{
		"User-Agent": []string{c.userAgent},
		"Accept":     []string{"application/json"},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: company facts %s", padded)
	}
	defer body.Close() //nolint:errcheck

	facts, err := xbrl.ParseCompanyFacts(body)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: company facts %s", padded)
	}
	return facts, nil
}
