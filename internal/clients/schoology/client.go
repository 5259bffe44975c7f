package schoology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/sirupsen/logrus"

	"schoolcal/internal/offline"
)

const (
	// DefaultBaseURL is the Schoology REST API root.
	DefaultBaseURL = "https://api.schoology.com/v1"

	pageSize       = 500
	requestTimeout = 30 * time.Second
)

// APIError is a non-200 response from the LMS.
type APIError struct {
	Path       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Schoology API error %d on %s", e.StatusCode, e.Path)
}

// Doer abstracts the signing HTTP client for tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a two-legged OAuth1 Schoology API client scoped to one user.
type Client struct {
	baseURL    string
	userID     string
	httpClient Doer
	log        *logrus.Entry
}

// NewClient creates a client signing every request with the given
// consumer credentials. baseURL may be empty for the production API.
func NewClient(consumerKey, consumerSecret, userID, baseURL string, log *logrus.Entry) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cfg := oauth1.NewConfig(consumerKey, consumerSecret)
	httpClient := cfg.Client(oauth1.NoContext, oauth1.NewToken("", ""))
	httpClient.Timeout = requestTimeout

	return &Client{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: httpClient,
		log:        log,
	}
}

// IsConfigured reports whether the client has a user to query for.
func (c *Client) IsConfigured() bool {
	return c.userID != ""
}

func (c *Client) UserID() string { return c.userID }

// Sections returns the user's active section enrollments.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var resp sectionsResponse
	if err := c.get(ctx, fmt.Sprintf("/users/%s/sections", c.userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Section, nil
}

// Events pages through the user's calendar events in [start, end]. On
// error the events collected so far are returned alongside it, so an
// offline failure mid-pagination still yields a partial result.
func (c *Client) Events(ctx context.Context, start, end time.Time) ([]Event, error) {
	path := fmt.Sprintf("/users/%s/events", c.userID)
	var all []Event

	for offset := 0; ; offset += pageSize {
		q := url.Values{
			"start_date": {start.Format("2006-01-02")},
			"end_date":   {end.Format("2006-01-02")},
			"start":      {strconv.Itoa(offset)},
			"limit":      {strconv.Itoa(pageSize)},
		}
		var resp eventsResponse
		if err := c.get(ctx, path, q, &resp); err != nil {
			return all, err
		}
		page := resp.items()
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// CheckSubmission asks whether the user has submitted the given
// assignment in the given section. A 404 means the item accepts no
// submissions, not that it is missing.
func (c *Client) CheckSubmission(ctx context.Context, sectionID, itemID string) (SubmissionResult, error) {
	path := fmt.Sprintf("/sections/%s/submissions/%s/%s", sectionID, itemID, c.userID)

	var resp submissionResponse
	err := c.get(ctx, path, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return SubmissionResult{SubmissionsDisabled: true}, nil
		}
		return SubmissionResult{}, err
	}

	result := SubmissionResult{
		SubmissionsDisabled: resp.AllowSubmissions != nil && *resp.AllowSubmissions == 0,
	}
	for _, rev := range resp.Revision {
		if rev.nonDraft() {
			result.HasSubmission = true
			break
		}
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if offline.IsOffline(err) {
			if c.log != nil {
				c.log.Info(offline.Indicator(err))
			}
			return fmt.Errorf("get %s: %w", path, offline.ErrOffline)
		}
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Path: path, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
