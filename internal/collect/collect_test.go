package collect

import (
	"context"
	"testing"

	"github.com/ritwikverma/deathwatch/internal/config"
	"github.com/ritwikverma/deathwatch/internal/feed"
	"github.com/ritwikverma/deathwatch/internal/fetch"
	"github.com/ritwikverma/deathwatch/internal/store"
)

const target = "2024-01-02"

// fakeQuerier serves canned candidates per topic, in topic order.
type fakeQuerier struct {
	byTopic map[string][]feed.Candidate
	queried []string
}

func (f *fakeQuerier) Search(_ context.Context, topic string, max int) []feed.Candidate {
	f.queried = append(f.queried, topic)
	cands := f.byTopic[topic]
	if len(cands) > max {
		cands = cands[:max]
	}
	return cands
}

// fakeFetcher returns canned documents and records every fetch.
type fakeFetcher struct {
	docs    map[string]fetch.Document
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) fetch.Document {
	f.fetched = append(f.fetched, url)
	if doc, ok := f.docs[url]; ok {
		return doc
	}
	return okDoc(target)
}

func (f *fakeFetcher) fetchCount(url string) int {
	n := 0
	for _, u := range f.fetched {
		if u == url {
			n++
		}
	}
	return n
}

// denyRobots blocks a fixed set of URLs.
type denyRobots struct {
	blocked map[string]bool
}

func (d *denyRobots) Allowed(_ context.Context, url string) bool {
	return !d.blocked[url]
}

func okDoc(date string) fetch.Document {
	return fetch.Document{
		Title:       "Man dies in road accident",
		BodyText:    "A 34-year-old man died after his motorcycle collided with a truck on the highway.",
		PublishDate: date,
		Status:      fetch.StatusOK,
	}
}

func testConfig(minCases, maxTotal int) *config.Config {
	cfg := config.Default()
	cfg.Queries = []string{"topic-a", "topic-b"}
	cfg.Limits.MinCasesPerRun = minCases
	cfg.Limits.MaxLinksPerQuery = 100
	cfg.Limits.MaxTotalLinks = maxTotal
	cfg.Fetch.DelayMs = 0
	return cfg
}

func cands(urls ...string) []feed.Candidate {
	out := make([]feed.Candidate, len(urls))
	for i, u := range urls {
		out[i] = feed.Candidate{URL: u, Published: target}
	}
	return out
}

func TestRunAcceptsAndSequencesCaseIDs(t *testing.T) {
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": cands(
			"https://ndtv.com/story-1",
			"https://ndtv.com/story-2",
			"https://smallpaper.in/story-3",
		),
	}}
	pages := &fakeFetcher{}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if len(result.Accepted) != 3 {
		t.Fatalf("expected 3 accepted, got %d", len(result.Accepted))
	}

	wantIDs := []string{
		"NDTV-2024-01-02-001",
		"NDTV-2024-01-02-002",
		"OTHER-2024-01-02-001",
	}
	seen := make(map[string]bool)
	for i, rec := range result.Accepted {
		if rec.CaseID != wantIDs[i] {
			t.Errorf("case ID %d = %q, want %q", i, rec.CaseID, wantIDs[i])
		}
		if seen[rec.CaseID] {
			t.Errorf("duplicate case ID %q within run", rec.CaseID)
		}
		seen[rec.CaseID] = true
	}

	if result.Accepted[0].SourceName != "ndtv.com" {
		t.Errorf("expected bare host source name, got %q", result.Accepted[0].SourceName)
	}
	if result.Accepted[0].ReportedDate != target {
		t.Errorf("expected reported date %s, got %s", target, result.Accepted[0].ReportedDate)
	}
}

func TestAlreadySeenInStoreSkipsWithoutFetch(t *testing.T) {
	known := "https://ndtv.com/old-story"
	existing := []store.CaseRecord{{SourceURL: known, CaseID: "NDTV-2024-01-01-001"}}

	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": cands(known, "https://ndtv.com/new-story"),
	}}
	pages := &fakeFetcher{}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, existing)

	if pages.fetchCount(known) != 0 {
		t.Error("expected no fetch for URL already in store")
	}
	if result.Skips[ReasonAlreadySeen] != 1 {
		t.Errorf("expected 1 already-seen skip, got %d", result.Skips[ReasonAlreadySeen])
	}
	if len(result.Accepted) != 1 {
		t.Errorf("expected 1 accepted, got %d", len(result.Accepted))
	}
}

func TestDuplicateWithinRunSkips(t *testing.T) {
	dup := "https://ndtv.com/story"
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": cands(dup),
		"topic-b": cands(dup),
	}}
	pages := &fakeFetcher{}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if pages.fetchCount(dup) != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", pages.fetchCount(dup))
	}
	if len(result.Accepted) != 1 || result.Skips[ReasonAlreadySeen] != 1 {
		t.Errorf("expected 1 accepted + 1 already-seen, got %d/%d",
			len(result.Accepted), result.Skips[ReasonAlreadySeen])
	}
}

func TestFeedDateMismatchSkipsBeforeFetch(t *testing.T) {
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": {{URL: "https://ndtv.com/yesterday", Published: "2024-01-01"}},
	}}
	pages := &fakeFetcher{}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if len(pages.fetched) != 0 {
		t.Error("expected no network call for feed-date mismatch")
	}
	if result.Skips[ReasonFeedDateMismatch] != 1 {
		t.Errorf("expected feed-date-mismatch skip, got %v", result.Skips)
	}
}

func TestFetchFailureSkips(t *testing.T) {
	bad := "https://ndtv.com/gone"
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{"topic-a": cands(bad)}}
	pages := &fakeFetcher{docs: map[string]fetch.Document{
		bad: {Status: fetch.StatusHTTPError, HTTPCode: 404},
	}}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if len(result.Accepted) != 0 {
		t.Errorf("expected 0 accepted, got %d", len(result.Accepted))
	}
	if result.Skips["http_error_404"] != 1 {
		t.Errorf("expected http_error_404 skip, got %v", result.Skips)
	}
}

func TestArticleDateMismatchSkips(t *testing.T) {
	u := "https://ndtv.com/stale"
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		// No feed hint, so the article date is the only check.
		"topic-a": {{URL: u}},
	}}
	pages := &fakeFetcher{docs: map[string]fetch.Document{u: okDoc("2024-01-01")}}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if result.Skips[ReasonArticleDateMismatch] != 1 {
		t.Errorf("expected article-date-mismatch skip, got %v", result.Skips)
	}
}

func TestNoDateInfoSkips(t *testing.T) {
	u := "https://ndtv.com/undated"
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": {{URL: u}}, // no feed hint
	}}
	pages := &fakeFetcher{docs: map[string]fetch.Document{u: okDoc("")}}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if result.Skips[ReasonNoDateInfo] != 1 {
		t.Errorf("expected no-date-info skip, got %v", result.Skips)
	}
}

func TestFeedHintAloneDatesArticle(t *testing.T) {
	// Article page has no date, but the feed hint matches the target:
	// conservative rejection does not apply.
	u := "https://ndtv.com/hinted"
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{"topic-a": cands(u)}}
	pages := &fakeFetcher{docs: map[string]fetch.Document{u: okDoc("")}}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if len(result.Accepted) != 1 {
		t.Errorf("expected acceptance with feed hint only, got %v", result.Skips)
	}
}

func TestKeywordGateSkips(t *testing.T) {
	u := "https://ndtv.com/markets"
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{"topic-a": cands(u)}}
	pages := &fakeFetcher{docs: map[string]fetch.Document{u: {
		Title:       "Markets rally on budget hopes",
		BodyText:    "Equity benchmarks closed higher for the third session in a row.",
		PublishDate: target,
		Status:      fetch.StatusOK,
	}}}

	result := NewCollector(testConfig(15, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if result.Skips[ReasonNoKeyword] != 1 {
		t.Errorf("expected no-keyword skip, got %v", result.Skips)
	}
}

func TestRobotsDisallowedSkipsBeforeFetch(t *testing.T) {
	blocked := "https://ndtv.com/blocked"
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": cands(blocked, "https://ndtv.com/open"),
	}}
	pages := &fakeFetcher{}
	robots := &denyRobots{blocked: map[string]bool{blocked: true}}

	result := NewCollector(testConfig(15, 1000), feeds, pages, robots).Run(context.Background(), target, nil)

	if pages.fetchCount(blocked) != 0 {
		t.Error("expected no fetch for robots-disallowed URL")
	}
	if result.Skips[ReasonRobotsDisallowed] != 1 {
		t.Errorf("expected robots-disallowed skip, got %v", result.Skips)
	}
	if len(result.Accepted) != 1 {
		t.Errorf("expected 1 accepted, got %d", len(result.Accepted))
	}
}

func TestMinCasesStopsRunEarly(t *testing.T) {
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": cands("https://ndtv.com/a", "https://ndtv.com/b"),
		"topic-b": cands("https://ndtv.com/c"),
	}}
	pages := &fakeFetcher{}

	result := NewCollector(testConfig(1, 1000), feeds, pages, nil).Run(context.Background(), target, nil)

	if len(result.Accepted) != 1 {
		t.Fatalf("expected run to stop at 1 accepted, got %d", len(result.Accepted))
	}
	if len(pages.fetched) != 1 {
		t.Errorf("expected 1 fetch before stopping, got %d", len(pages.fetched))
	}
	if len(feeds.queried) != 1 {
		t.Errorf("expected second topic to be skipped, queried %v", feeds.queried)
	}
}

func TestGlobalLinkCapStopsRun(t *testing.T) {
	feeds := &fakeQuerier{byTopic: map[string][]feed.Candidate{
		"topic-a": {
			{URL: "https://ndtv.com/a", Published: "2024-01-01"}, // skipped, still counts
			{URL: "https://ndtv.com/b", Published: "2024-01-01"},
			{URL: "https://ndtv.com/c", Published: target},
		},
	}}
	pages := &fakeFetcher{}

	result := NewCollector(testConfig(15, 2), feeds, pages, nil).Run(context.Background(), target, nil)

	if result.LinksTried != 2 {
		t.Errorf("expected 2 links tried under cap, got %d", result.LinksTried)
	}
	if len(pages.fetched) != 0 {
		t.Errorf("expected third candidate never reached, fetched %v", pages.fetched)
	}
}
