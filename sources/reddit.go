package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/siherrmann/trendsense/core/collect"
	"github.com/siherrmann/trendsense/model"
)

const redditDefaultBase = "https://www.reddit.com"

// Reddit fetches hot posts from the public listing API of the configured
// subreddits. Credentials stay opaque; the public endpoint needs none.
type Reddit struct {
	BaseURL    string
	Client     *http.Client
	Subreddits []string
}

// NewReddit creates a Reddit adapter for the given subreddits
func NewReddit(subreddits []string) *Reddit {
	return &Reddit{
		BaseURL:    redditDefaultBase,
		Client:     &http.Client{Timeout: 10 * time.Second},
		Subreddits: subreddits,
	}
}

// Kind returns the source kind
func (r *Reddit) Kind() model.SourceKind { return model.SourceReddit }

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}

// Fetch retrieves hot posts from every configured subreddit
func (r *Reddit) Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawItem, error) {
	if len(r.Subreddits) == 0 {
		return nil, &collect.SourceUnavailableError{Reason: "no subreddits configured", Permanent: true}
	}

	perSub := limit / len(r.Subreddits)
	if perSub < 1 {
		perSub = 1
	}

	var items []model.RawItem
	for _, sub := range r.Subreddits {
		posts, err := r.fetchSubreddit(ctx, sub, perSub)
		if err != nil {
			return nil, err
		}

		for _, post := range posts {
			if post.Stickied || post.Title == "" {
				continue
			}
			published := time.Unix(int64(post.CreatedUTC), 0).UTC()
			if published.Before(since) {
				continue
			}

			url := post.URL
			if url == "" {
				url = redditDefaultBase + post.Permalink
			}

			items = append(items, model.RawItem{
				SourceID:    model.SourceReddit,
				ExternalID:  post.ID,
				Title:       post.Title,
				Body:        post.Selftext,
				URL:         url,
				Author:      post.Author,
				PublishedAt: published,
				FetchedAt:   time.Now().UTC(),
				Metrics: model.RawMetrics{
					Score:    post.Score,
					Upvotes:  post.Ups,
					Comments: post.NumComments,
				},
			})
		}
	}

	return items, nil
}

// fetchSubreddit loads one subreddit's hot listing
func (r *Reddit) fetchSubreddit(ctx context.Context, subreddit string, limit int) ([]redditPost, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", r.BaseURL, subreddit, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &collect.SourceUnavailableError{Reason: err.Error(), Permanent: true}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, &collect.SourceUnavailableError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if err := statusToError(resp); err != nil {
		return nil, err
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, &collect.SourceUnavailableError{Reason: fmt.Sprintf("decode listing: %v", err)}
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
