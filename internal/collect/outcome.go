package collect

// Skip reasons, in the order the per-link policy evaluates them.
// The first matching rule wins; an accepted link matches none.
const (
	ReasonAlreadySeen         = "already-seen"
	ReasonFeedDateMismatch    = "feed-date-mismatch"
	ReasonRobotsDisallowed    = "robots-disallowed"
	ReasonArticleDateMismatch = "article-date-mismatch"
	ReasonNoDateInfo          = "no-date-info"
	ReasonNoKeyword           = "no-keyword"
)

// Outcome reports which policy rule fired for a candidate link. Reason is
// empty exactly when the link was accepted.
type Outcome struct {
	Accepted bool
	Reason   string
	Fetched  bool // whether a network fetch was attempted
}

func skip(reason string, fetched bool) Outcome {
	return Outcome{Reason: reason, Fetched: fetched}
}

func accepted() Outcome {
	return Outcome{Accepted: true, Fetched: true}
}
