package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxBodyBlocks    = 8
	minBlockChars    = 30
)

// Status classifies the outcome of a single article fetch.
type Status string

const (
	StatusOK            Status = "ok"
	StatusRequestFailed Status = "request_failed"
	StatusHTTPError     Status = "http_error"
	StatusParseError    Status = "parse_error"
)

// Document is the result of fetching one article URL. Title, BodyText,
// and PublishDate are only populated when Status is ok.
type Document struct {
	Title       string
	BodyText    string
	PublishDate string // YYYY-MM-DD or empty
	Status      Status
	HTTPCode    int
}

// OK reports whether the fetch produced a usable document.
func (d Document) OK() bool { return d.Status == StatusOK }

// Reason returns the skip reason string for a failed fetch.
func (d Document) Reason() string {
	if d.Status == StatusHTTPError {
		return fmt.Sprintf("http_error_%d", d.HTTPCode)
	}
	return string(d.Status)
}

// Fetcher retrieves article pages with a bounded per-request timeout.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a new article fetcher.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Fetch performs a single bounded-time retrieval of the URL. There are no
// retries; any non-ok status is terminal for the candidate.
func (f *Fetcher) Fetch(ctx context.Context, articleURL string) Document {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return Document{Status: StatusRequestFailed}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{Status: StatusRequestFailed}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{Status: StatusHTTPError, HTTPCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBodyBytes))
	if err != nil {
		return Document{Status: StatusRequestFailed}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Document{Status: StatusParseError}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	bodyText := extractBody(doc)
	if bodyText == "" {
		bodyText = readabilityFallback(body, articleURL)
	}

	return Document{
		Title:       title,
		BodyText:    bodyText,
		PublishDate: extractPublishDate(doc),
		Status:      StatusOK,
	}
}

// extractBody joins the first qualifying paragraph blocks in document
// order. The length floor filters captions and boilerplate; the block cap
// bounds extraction cost on long articles.
func extractBody(doc *goquery.Document) string {
	var blocks []string
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if len([]rune(text)) > minBlockChars {
			blocks = append(blocks, text)
		}
		return len(blocks) < maxBodyBlocks
	})
	return strings.Join(blocks, " ")
}

// readabilityFallback extracts article text from pages whose markup has
// no qualifying paragraph blocks.
func readabilityFallback(body []byte, articleURL string) string {
	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(article.TextContent), " ")
}

// dateProbes is the ordered list of metadata locations checked for a
// publish timestamp. The first non-empty value wins.
var dateProbes = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="publish-date"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[name="dc.date"]`, "content"},
	{`time[datetime]`, "datetime"},
}

func extractPublishDate(doc *goquery.Document) string {
	for _, probe := range dateProbes {
		node := doc.Find(probe.selector).First()
		if node.Length() == 0 {
			continue
		}
		raw, _ := node.Attr(probe.attr)
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
