package collect

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ritwikverma/deathwatch/internal/config"
	"github.com/ritwikverma/deathwatch/internal/extract"
	"github.com/ritwikverma/deathwatch/internal/feed"
	"github.com/ritwikverma/deathwatch/internal/fetch"
	"github.com/ritwikverma/deathwatch/internal/store"
)

// Querier yields candidate links for a search topic.
type Querier interface {
	Search(ctx context.Context, topic string, max int) []feed.Candidate
}

// PageFetcher retrieves one article page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) fetch.Document
}

// RobotsPolicy answers whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}

// Result holds the outcome of one collection run.
type Result struct {
	TargetDate string
	LinksTried int
	Accepted   []store.CaseRecord
	Skips      map[string]int
}

// Collector drives the end-to-end collection loop: one topic at a time,
// one link at a time, strictly sequential so that case_id sequencing and
// skip-policy evaluation stay deterministic.
type Collector struct {
	cfg     *config.Config
	feeds   Querier
	pages   PageFetcher
	robots  RobotsPolicy // nil disables the robots gate
	limiter *rate.Limiter
}

// NewCollector creates a collector. robots may be nil.
func NewCollector(cfg *config.Config, feeds Querier, pages PageFetcher, robots RobotsPolicy) *Collector {
	var limiter *rate.Limiter
	if delay := cfg.Delay(); delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Collector{
		cfg:     cfg,
		feeds:   feeds,
		pages:   pages,
		robots:  robots,
		limiter: limiter,
	}
}

// runState is the run's only mutable state: the seen-URL set, the
// per-source sequence counters, and the accepted batch. It is threaded
// explicitly through each step rather than held as ambient state.
type runState struct {
	seen       map[string]struct{}
	counters   map[string]int
	accepted   []store.CaseRecord
	linksTried int
	skips      map[string]int
}

func newRunState(existing []store.CaseRecord) *runState {
	st := &runState{
		seen:     make(map[string]struct{}, len(existing)),
		counters: make(map[string]int),
		skips:    make(map[string]int),
	}
	for _, rec := range existing {
		st.seen[rec.SourceURL] = struct{}{}
	}
	return st
}

// done reports whether the run should stop: enough records accepted or
// the global links-tried cap reached.
func (st *runState) done(limits config.Limits) bool {
	return len(st.accepted) >= limits.MinCasesPerRun ||
		st.linksTried >= limits.MaxTotalLinks
}

// Run executes one full collection pass over all configured topics for
// the target date (YYYY-MM-DD). existing seeds the dedup set with prior
// history. One pass only; there is no run-level retry.
func (c *Collector) Run(ctx context.Context, target string, existing []store.CaseRecord) *Result {
	st := newRunState(existing)
	limits := c.cfg.Limits

	for _, topic := range c.cfg.Queries {
		if st.done(limits) {
			break
		}

		candidates := c.feeds.Search(ctx, topic, limits.MaxLinksPerQuery)
		for _, cand := range candidates {
			if st.done(limits) {
				break
			}

			st.linksTried++
			outcome := c.processLink(ctx, st, cand, target)
			if outcome.Accepted {
				rec := st.accepted[len(st.accepted)-1]
				log.Printf("Accepted [%s]: %s", rec.CaseID, cand.URL)
			} else {
				st.skips[outcome.Reason]++
				log.Printf("Skipped (%s): %s", outcome.Reason, cand.URL)
			}
		}
	}

	log.Printf("Run complete: %d links tried, %d accepted", st.linksTried, len(st.accepted))
	return &Result{
		TargetDate: target,
		LinksTried: st.linksTried,
		Accepted:   st.accepted,
		Skips:      st.skips,
	}
}

// processLink applies the per-link policy in order; the first matching
// rule wins. Rules before the fetch never touch the network or the
// politeness limiter.
func (c *Collector) processLink(ctx context.Context, st *runState, cand feed.Candidate, target string) Outcome {
	if _, dup := st.seen[cand.URL]; dup {
		return skip(ReasonAlreadySeen, false)
	}

	if cand.Published != "" && cand.Published != target {
		return skip(ReasonFeedDateMismatch, false)
	}

	if c.robots != nil && !c.robots.Allowed(ctx, cand.URL) {
		return skip(ReasonRobotsDisallowed, false)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return skip(string(fetch.StatusRequestFailed), false)
		}
	}

	doc := c.pages.Fetch(ctx, cand.URL)
	if !doc.OK() {
		return skip(doc.Reason(), true)
	}

	if doc.PublishDate != "" && doc.PublishDate != target {
		return skip(ReasonArticleDateMismatch, true)
	}

	// Ambiguous dating is rejected rather than guessed.
	if doc.PublishDate == "" && cand.Published == "" {
		return skip(ReasonNoDateInfo, true)
	}

	combined := strings.TrimSpace(doc.Title + " " + doc.BodyText)
	if !extract.HasDeathKeyword(combined) {
		return skip(ReasonNoKeyword, true)
	}

	facts := extract.FromText(combined)
	host := hostOf(cand.URL)
	code := c.cfg.SourceCode(host)

	st.counters[code]++
	caseID := fmt.Sprintf("%s-%s-%03d", code, target, st.counters[code])

	st.accepted = append(st.accepted, store.NewCaseRecord(caseID, target, host, cand.URL, facts))
	st.seen[cand.URL] = struct{}{}
	return accepted()
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
