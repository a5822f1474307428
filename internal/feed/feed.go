package feed

import (
	"context"
	"log"
	"net/url"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/ritwikverma/deathwatch/internal/config"
)

const defaultBaseURL = "https://news.google.com/rss/search"

// Candidate is an unprocessed article link yielded by a feed query,
// together with the feed-reported publish date when one was present.
type Candidate struct {
	URL       string
	Published string // YYYY-MM-DD or empty
}

// Client queries Google News RSS for a search topic.
type Client struct {
	parser  *gofeed.Parser
	baseURL string
	cfg     config.Feed
}

// NewClient creates a feed client scoped to the configured language,
// country, and recency window.
func NewClient(cfg config.Feed, userAgent string) *Client {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &Client{
		parser:  parser,
		baseURL: defaultBaseURL,
		cfg:     cfg,
	}
}

// SearchURL builds the RSS request URL for a topic.
func (c *Client) SearchURL(topic string) string {
	q := url.Values{}
	q.Set("q", topic+" "+c.cfg.Recency)
	q.Set("hl", c.cfg.Language)
	q.Set("gl", c.cfg.Country)
	q.Set("ceid", c.cfg.Edition)
	return c.baseURL + "?" + q.Encode()
}

// Search issues one feed query for a topic and returns up to max
// candidates in feed order, with redirector links resolved. A network or
// parse failure is logged and reported as an empty result; it is never
// fatal to the caller.
func (c *Client) Search(ctx context.Context, topic string, max int) []Candidate {
	rssURL := c.SearchURL(topic)
	log.Printf("Fetching RSS for query: %s", topic)

	fd, err := c.parser.ParseURLWithContext(rssURL, ctx)
	if err != nil {
		log.Printf("Feed query failed for %q: %v", topic, err)
		return nil
	}
	log.Printf("Feed returned %d entries (taking up to %d)", len(fd.Items), max)

	var candidates []Candidate
	for _, item := range fd.Items {
		if len(candidates) >= max {
			break
		}
		link := ResolveRedirect(item.Link)
		if link == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			URL:       link,
			Published: itemDate(item),
		})
	}

	log.Printf("Resolved %d links from query %q", len(candidates), topic)
	return candidates
}

// itemDate normalizes a feed item's published timestamp to a calendar
// date, tolerating the loose date strings feeds actually serve.
func itemDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format("2006-01-02")
	}
	if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.Format("2006-01-02")
	}
	return ""
}

// WithBaseURL overrides the feed endpoint. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// ParseDate exposes the tolerant date normalization used for feed hints.
func ParseDate(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}
