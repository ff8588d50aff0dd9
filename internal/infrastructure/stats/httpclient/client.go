// Package httpclient talks to a remote statistics server over its REST API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/infrastructure/stats"
	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
)

type hitDTO struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

type viewStatsDTO struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

type Client struct {
	baseURL    string
	app        string
	unique     bool
	httpClient *http.Client
}

func New(baseURL, app string, unique bool, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		app:     app,
		unique:  unique,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SaveHit posts one hit to /hit.
func (c *Client) SaveHit(ctx context.Context, hit domain.Hit) error {
	body, err := json.Marshal(hitDTO{
		App:       c.app,
		URI:       hit.URI,
		IP:        hit.IP,
		Timestamp: hit.Timestamp.UTC().Format(stats.TimeLayout),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.forwardRequestID(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("stats server returned %d on /hit", resp.StatusCode)
	}
	return nil
}

// ViewCount asks /stats for the hits of uri between since and now.
func (c *Client) ViewCount(ctx context.Context, uri string, since time.Time) (int64, error) {
	q := url.Values{}
	q.Set("start", since.UTC().Format(stats.TimeLayout))
	q.Set("end", time.Now().UTC().Format(stats.TimeLayout))
	q.Add("uris", uri)
	q.Set("unique", fmt.Sprint(c.unique))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	c.forwardRequestID(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("stats server returned %d on /stats", resp.StatusCode)
	}

	var rows []viewStatsDTO
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return 0, fmt.Errorf("decode stats: %w", err)
	}

	var total int64
	for _, r := range rows {
		if r.URI == uri {
			total += r.Hits
		}
	}
	return total, nil
}

func (c *Client) forwardRequestID(ctx context.Context, req *http.Request) {
	if id := appCtx.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
}
