package feed

import (
	"net/url"
	"strings"
)

// ResolveRedirect unwraps Google News redirector links to the original
// article URL when the destination is carried in the query string. Any
// other URL, including unparsable input, is returned unchanged.
func ResolveRedirect(link string) string {
	if link == "" {
		return link
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}

	if !strings.Contains(parsed.Host, "news.google") || parsed.RawQuery == "" {
		return link
	}

	if dest := parsed.Query().Get("url"); dest != "" {
		return dest
	}
	return link
}
