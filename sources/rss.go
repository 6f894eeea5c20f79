package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/siherrmann/trendsense/core/collect"
	"github.com/siherrmann/trendsense/model"
)

// RSS fetches items from a set of RSS/Atom feeds
type RSS struct {
	FeedURLs []string
	Parser   *gofeed.Parser
}

// NewRSS creates an RSS adapter for the given feed URLs
func NewRSS(feedURLs []string) *RSS {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &RSS{
		FeedURLs: feedURLs,
		Parser:   parser,
	}
}

// Kind returns the source kind
func (r *RSS) Kind() model.SourceKind { return model.SourceRSS }

// Fetch parses every configured feed and returns entries published after
// since. A single broken feed fails the fetch only if no feed succeeds.
func (r *RSS) Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawItem, error) {
	if len(r.FeedURLs) == 0 {
		return nil, &collect.SourceUnavailableError{Reason: "no feed urls configured", Permanent: true}
	}

	var items []model.RawItem
	var failures []string

	for _, feedURL := range r.FeedURLs {
		feed, err := r.Parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", feedURL, err))
			continue
		}

		for _, entry := range feed.Items {
			if len(items) >= limit {
				break
			}
			if entry.Title == "" || entry.Link == "" {
				continue
			}

			published := time.Now().UTC()
			if entry.PublishedParsed != nil {
				published = entry.PublishedParsed.UTC()
			} else if entry.UpdatedParsed != nil {
				published = entry.UpdatedParsed.UTC()
			}
			if published.Before(since) {
				continue
			}

			author := ""
			if len(entry.Authors) > 0 {
				author = entry.Authors[0].Name
			}

			items = append(items, model.RawItem{
				SourceID:    model.SourceRSS,
				ExternalID:  externalID(entry),
				Title:       entry.Title,
				Body:        stripHTML(entry.Description),
				URL:         entry.Link,
				Author:      author,
				PublishedAt: published,
				FetchedAt:   time.Now().UTC(),
			})
		}
	}

	if len(items) == 0 && len(failures) == len(r.FeedURLs) {
		return nil, &collect.SourceUnavailableError{Reason: strings.Join(failures, "; ")}
	}

	return items, nil
}

// externalID prefers the feed-declared GUID, falling back to the link
func externalID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	return entry.Link
}

// stripHTML drops markup from feed descriptions, keeping the text content
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
