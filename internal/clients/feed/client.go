// Package feed fetches the upstream ICS calendar and converts between
// iCalendar components and pipeline items.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/sirupsen/logrus"

	"schoolcal/internal/offline"
)

const requestTimeout = 30 * time.Second

// Doer abstracts the HTTP client for tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches ICS bytes from an opaque feed URL.
type Client struct {
	httpClient Doer
	log        *logrus.Entry
}

func NewClient(log *logrus.Entry) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// Fetch retrieves and decodes the calendar at url. Connectivity failures
// come back wrapped in offline.ErrOffline; a non-200 status or an empty
// body is a hard failure for the request.
func (c *Client) Fetch(ctx context.Context, url string) (*ical.Calendar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if offline.IsOffline(err) {
			if c.log != nil {
				c.log.Info(offline.Indicator(err))
			}
			return nil, fmt.Errorf("fetch feed: %w", offline.ErrOffline)
		}
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch feed: empty body")
	}

	cal, err := ical.NewDecoder(bytes.NewReader(body)).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return cal, nil
}

// Encode serializes the calendar back to ICS bytes.
func Encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	return buf.Bytes(), nil
}
