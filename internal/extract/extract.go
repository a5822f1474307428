package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const maxContextChars = 300

// Gender is the coded gender derived from article text.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Cause is the cause-of-death category derived from article text.
type Cause string

const (
	CauseAccident       Cause = "accident"
	CauseSuicide        Cause = "suicide"
	CauseHomicide       Cause = "homicide"
	CauseDrowning       Cause = "drowning"
	CauseTrainCollision Cause = "train_collision"
	CauseGunshot        Cause = "gunshot"
	CauseFoundDead      Cause = "found_dead"
	CauseDeath          Cause = "death"
)

// Facts holds the structured attributes extracted from one article.
type Facts struct {
	Age     int // 0 when absent
	HasAge  bool
	Gender  Gender
	Cause   Cause
	Context string
}

var agePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)aged (\d{1,3})`),
	regexp.MustCompile(`(?i)(\d{1,3})-year-old`),
	regexp.MustCompile(`(?i)(\d{1,3}) years old`),
}

var (
	maleCues   = regexp.MustCompile(`(?i)\b(man|male|he|him|boy)\b`)
	femaleCues = regexp.MustCompile(`(?i)\b(woman|female|she|her|girl)\b`)
)

// causeRules are evaluated top-down; the first matching rule wins.
var causeRules = []struct {
	match func(string) bool
	cause Cause
}{
	{matchAny("accident", "crash"), CauseAccident},
	{matchAny("suicide"), CauseSuicide},
	{matchAny("murder", "killed"), CauseHomicide},
	{matchAny("drown"), CauseDrowning},
	{func(s string) bool {
		return strings.Contains(s, "train") &&
			(strings.Contains(s, "hit") || strings.Contains(s, "collision"))
	}, CauseTrainCollision},
	{matchAny("shot", "gunshot"), CauseGunshot},
	{matchAny("found dead", "body found"), CauseFoundDead},
}

var deathKeywords = []string{
	"dead", "death", "died", "dies", "killed", "murder", "suicide",
	"accident", "body found", "found dead", "victim", "drowned", "shot",
}

func matchAny(terms ...string) func(string) bool {
	return func(s string) bool {
		for _, t := range terms {
			if strings.Contains(s, t) {
				return true
			}
		}
		return false
	}
}

// HasDeathKeyword is the lexical gate a candidate's text must pass before
// structured extraction is attempted.
func HasDeathKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range deathKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FromText derives structured facts from combined title and body text.
// Extraction is deterministic; the same text always yields the same facts.
func FromText(text string) Facts {
	f := Facts{
		Gender:  extractGender(text),
		Cause:   extractCause(text),
		Context: truncateContext(text),
	}
	if age, ok := extractAge(text); ok {
		f.Age = age
		f.HasAge = true
	}
	return f
}

// extractAge tries the age patterns in priority order. Matches outside
// the plausible 0..130 range are ignored.
func extractAge(text string) (int, bool) {
	for _, pat := range agePatterns {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		age, err := strconv.Atoi(m[1])
		if err != nil || age > 130 {
			continue
		}
		return age, true
	}
	return 0, false
}

// extractGender codes gender from cue words. The female check runs after
// the male check and overrides it when both cue sets are present; this
// ordering is relied upon downstream and must not change.
func extractGender(text string) Gender {
	gender := GenderUnknown
	if maleCues.MatchString(text) {
		gender = GenderMale
	}
	if femaleCues.MatchString(text) {
		gender = GenderFemale
	}
	return gender
}

func extractCause(text string) Cause {
	lower := strings.ToLower(text)
	for _, rule := range causeRules {
		if rule.match(lower) {
			return rule.cause
		}
	}
	return CauseDeath
}

func truncateContext(text string) string {
	runes := []rune(text)
	if len(runes) <= maxContextChars {
		return text
	}
	return string(runes[:maxContextChars])
}
