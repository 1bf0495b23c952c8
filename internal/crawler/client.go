// Package crawler talks to the external scraping backend: job submission,
// queue inspection and retrieval of finished item sets. It never parses
// HTML itself, the backend hands back already-extracted records.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/wildsearch/pkg/models"
)

// ErrNotReady is returned when a job's items are requested before the job
// has finished. Callers retry with a bounded policy instead of failing.
var ErrNotReady = errors.New("crawler: job is not finished yet")

// Config carries the backend endpoints and credentials.
type Config struct {
	APIKey             string
	ProjectID          string
	RunURL             string
	StorageURL         string
	CategorySpider     string
	CategoryListSpider string
}

// Client is a thin REST client over the crawl backend.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// New creates a client with a sane request timeout.
func New(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log.With().Str("component", "crawler").Logger(),
	}
}

// ScheduledJobsCount returns the number of jobs currently pending plus
// running for the given spider.
func (c *Client) ScheduledJobsCount(ctx context.Context, spider string) (int, error) {
	total := 0
	for _, state := range []string{"pending", "running"} {
		n, err := c.jobCount(ctx, spider, state)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *Client) jobCount(ctx context.Context, spider, state string) (int, error) {
	endpoint := fmt.Sprintf("%s/jobq/%s/count?state=%s&spider=%s",
		c.cfg.StorageURL, c.cfg.ProjectID, url.QueryEscape(state), url.QueryEscape(spider))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, fmt.Errorf("crawler: bad job count response %q: %w", body, err)
	}
	return n, nil
}

// RunJob submits a crawl job and returns its job key.
func (c *Client) RunJob(ctx context.Context, spider string, args map[string]string) (string, error) {
	form := url.Values{}
	form.Set("project", c.cfg.ProjectID)
	form.Set("spider", spider)
	for k, v := range args {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RunURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("crawler: build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.APIKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crawler: run job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crawler: run job: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
		JobID  string `json:"jobid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("crawler: decode run response: %w", err)
	}
	if payload.Status != "ok" || payload.JobID == "" {
		return "", fmt.Errorf("crawler: run job rejected with status %q", payload.Status)
	}

	c.log.Info().Str("spider", spider).Str("job_id", payload.JobID).Msg("crawl job submitted")
	return payload.JobID, nil
}

// JobState returns the backend's state string for a job ("pending",
// "running" or "finished").
func (c *Client) JobState(ctx context.Context, jobID string) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/jobs/%s/state", c.cfg.StorageURL, jobID))
	if err != nil {
		return "", err
	}

	var state string
	if err := json.Unmarshal(body, &state); err != nil {
		// Some deployments answer with the bare word.
		state = strings.Trim(strings.TrimSpace(string(body)), `"`)
	}
	return state, nil
}

// Items fetches a finished job's scraped product records. It returns
// ErrNotReady while the job is still pending or running.
func (c *Client) Items(ctx context.Context, jobID string) ([]models.Item, error) {
	state, err := c.JobState(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if state != "finished" {
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotReady, jobID, state)
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/items/%s?format=json", c.cfg.StorageURL, jobID))
	if err != nil {
		return nil, err
	}

	var items []models.Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("crawler: decode items for job %s: %w", jobID, err)
	}
	return items, nil
}

// Categories fetches a finished category-list job's records.
func (c *Client) Categories(ctx context.Context, jobID string) ([]models.Category, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/items/%s?format=json", c.cfg.StorageURL, jobID))
	if err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, fmt.Errorf("crawler: decode categories for job %s: %w", jobID, err)
	}
	return categories, nil
}

// LastFinishedJobs returns the most recent finished job keys for a spider,
// newest first.
func (c *Client) LastFinishedJobs(ctx context.Context, spider string, count int) ([]string, error) {
	endpoint := fmt.Sprintf("%s/jobq/%s/list?spider=%s&state=finished&count=%d",
		c.cfg.StorageURL, c.cfg.ProjectID, url.QueryEscape(spider), count)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// The list endpoint answers with one JSON object per line.
	var keys []string
	dec := json.NewDecoder(strings.NewReader(string(body)))
	for dec.More() {
		var row struct {
			Key string `json:"key"`
		}
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("crawler: decode job list: %w", err)
		}
		if row.Key != "" {
			keys = append(keys, row.Key)
		}
	}
	return keys, nil
}

// LoadRecentCategorySnapshots loads the two most recent finished category
// listings: the older one first. It fails loudly when fewer than two
// snapshots exist, silently diffing against an empty set is never correct.
func (c *Client) LoadRecentCategorySnapshots(ctx context.Context) (old, latest []models.Category, err error) {
	keys, err := c.LastFinishedJobs(ctx, c.cfg.CategoryListSpider, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(keys) < 2 {
		return nil, nil, fmt.Errorf("crawler: need two finished %s snapshots to diff, have %d",
			c.cfg.CategoryListSpider, len(keys))
	}

	// keys[0] is the newest run.
	latest, err = c.Categories(ctx, keys[0])
	if err != nil {
		return nil, nil, err
	}
	old, err = c.Categories(ctx, keys[1])
	if err != nil {
		return nil, nil, err
	}
	return old, latest, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("crawler: build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.APIKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crawler: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crawler: request %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crawler: read response: %w", err)
	}
	return body, nil
}
