package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/siherrmann/trendsense/core/collect"
	"github.com/siherrmann/trendsense/model"
)

const (
	hackerNewsDefaultBase = "https://hacker-news.firebaseio.com/v0"
	userAgent             = "trendsense/1.0"

	// Stories below this score are skipped, they carry no trend signal
	hackerNewsMinScore = 10

	hackerNewsWorkers = 5
)

// HackerNews fetches top stories from the official Firebase API
type HackerNews struct {
	BaseURL string
	Client  *http.Client

	limiter *rate.Limiter
}

// NewHackerNews creates a Hacker News adapter with gentle request pacing
func NewHackerNews() *HackerNews {
	return &HackerNews{
		BaseURL: hackerNewsDefaultBase,
		Client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), hackerNewsWorkers),
	}
}

// Kind returns the source kind
func (h *HackerNews) Kind() model.SourceKind { return model.SourceHackerNews }

type hackerNewsItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	By          string `json:"by"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
}

// Fetch retrieves up to limit recent top stories published after since
func (h *HackerNews) Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawItem, error) {
	var ids []int
	if err := h.get(ctx, "topstories", &ids); err != nil {
		return nil, err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	var mu sync.Mutex
	var items []model.RawItem

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hackerNewsWorkers)

	for _, id := range ids {
		g.Go(func() error {
			if err := h.limiter.Wait(gctx); err != nil {
				return err
			}

			var story hackerNewsItem
			if err := h.get(gctx, fmt.Sprintf("item/%d", id), &story); err != nil {
				// A single missing story is not a source failure
				return nil
			}
			if story.Type != "story" || story.Title == "" || story.Score < hackerNewsMinScore {
				return nil
			}

			published := time.Unix(story.Time, 0).UTC()
			if published.Before(since) {
				return nil
			}

			url := story.URL
			if url == "" {
				url = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
			}

			item := model.RawItem{
				SourceID:    model.SourceHackerNews,
				ExternalID:  fmt.Sprintf("%d", story.ID),
				Title:       story.Title,
				Body:        story.Text,
				URL:         url,
				Author:      story.By,
				PublishedAt: published,
				FetchedAt:   time.Now().UTC(),
				Metrics: model.RawMetrics{
					Score:    story.Score,
					Comments: story.Descendants,
				},
			}

			mu.Lock()
			items = append(items, item)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &collect.SourceUnavailableError{Reason: err.Error()}
	}

	return items, nil
}

// get performs one API request and decodes the JSON response
func (h *HackerNews) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s.json", h.BaseURL, endpoint), nil)
	if err != nil {
		return &collect.SourceUnavailableError{Reason: err.Error(), Permanent: true}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.Client.Do(req)
	if err != nil {
		return &collect.SourceUnavailableError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if err := statusToError(resp); err != nil {
		return err
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
