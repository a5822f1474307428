package store

import (
	"github.com/ritwikverma/deathwatch/internal/extract"
)

// CaseRecord is the persisted unit: one structured death case tied to the
// article it was extracted from. SourceURL is the sole deduplication key
// across all runs, past and present.
type CaseRecord struct {
	CaseID          string  `json:"case_id"`
	ReportedDate    string  `json:"reported_date"`
	State           *string `json:"state"`
	District        *string `json:"district"`
	Gender          string  `json:"gender"`
	Age             *int    `json:"age"`
	CauseOfDeath    string  `json:"cause_of_death"`
	ReasonOrContext string  `json:"reason_or_context"`
	SourceName      string  `json:"source_name"`
	SourceURL       string  `json:"source_url"`
	Verified        bool    `json:"verified"`
}

// NewCaseRecord builds a record from extracted facts.
func NewCaseRecord(caseID, reportedDate, sourceName, sourceURL string, facts extract.Facts) CaseRecord {
	rec := CaseRecord{
		CaseID:          caseID,
		ReportedDate:    reportedDate,
		Gender:          string(facts.Gender),
		CauseOfDeath:    string(facts.Cause),
		ReasonOrContext: facts.Context,
		SourceName:      sourceName,
		SourceURL:       sourceURL,
	}
	if facts.HasAge {
		age := facts.Age
		rec.Age = &age
	}
	return rec
}
