// Package model holds the wire-level data types shared across the answer
// pipeline: plans, search hits, extracted pages, content features, ranked
// documents, answer packets, and the bandit/event types used for
// personalization.
package model

import "time"

// SubQuery is a single non-empty search string derived from a user query.
type SubQuery string

// Plan is the output of the Query Planner: a decomposition of the original
// query into 1-5 sub-queries, plus the strategy used to produce it.
type Plan struct {
	OriginalQuery string     `json:"originalQuery"`
	SubQueries    []SubQuery `json:"subQueries"`
	Strategy      string     `json:"strategy"` // "llm" or "fallback"
}

// Provenance records which sub-query produced a hit and at what rank.
type Provenance struct {
	SourceQuery   string `json:"sourceQuery"`
	OriginalRank  int    `json:"originalRank"`
}

// SearchHit is a single normalized search result.
type SearchHit struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Snippet       string     `json:"snippet"`
	Domain        string     `json:"domain"`
	PublishedHint string     `json:"publishedHint,omitempty"`
	Provenance    Provenance `json:"provenance"`
}

// ContentFeatures is the fixed 5-tuple of closed-vocabulary ordinals that the
// Feature Tagger assigns to a page, and the bandit's action space is drawn
// from.
type ContentFeatures struct {
	Depth    string `json:"depth"`
	Style    string `json:"style"`
	Format   string `json:"format"`
	Approach string `json:"approach"`
	Density  string `json:"density"`
}

// Closed vocabularies for each ContentFeatures dimension, in the order the
// bandit's arm space is enumerated.
var (
	DepthValues    = []string{"introductory", "intermediate", "expert"}
	StyleValues    = []string{"academic", "technical", "journalistic", "conversational"}
	FormatValues   = []string{"tutorial", "research", "opinion", "reference"}
	ApproachValues = []string{"conceptual", "practical", "data-driven"}
	DensityValues  = []string{"concise", "moderate", "comprehensive"}
)

// DefaultContentFeatures is the neutral default substituted when feature
// tagging fails or is skipped.
func DefaultContentFeatures() ContentFeatures {
	return ContentFeatures{
		Depth:    "intermediate",
		Style:    "journalistic",
		Format:   "reference",
		Approach: "practical",
		Density:  "moderate",
	}
}

// Arms returns the five dimension:value arm identifiers for this feature
// tuple, e.g. "depth:expert".
func (f ContentFeatures) Arms() []string {
	return []string{
		"depth:" + f.Depth,
		"style:" + f.Style,
		"format:" + f.Format,
		"approach:" + f.Approach,
		"density:" + f.Density,
	}
}

// AllArms enumerates the full bounded arm space (17 distinct arms).
func AllArms() []string {
	out := make([]string, 0, 17)
	add := func(dim string, values []string) {
		for _, v := range values {
			out = append(out, dim+":"+v)
		}
	}
	add("depth", DepthValues)
	add("style", StyleValues)
	add("format", FormatValues)
	add("approach", ApproachValues)
	add("density", DensityValues)
	return out
}

// PageExtract is the readability-derived content of a fetched URL.
type PageExtract struct {
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Body          string           `json:"body"`
	Excerpt       string           `json:"excerpt"`
	PublishedDate *time.Time       `json:"publishedDate,omitempty"`
	Features      *ContentFeatures `json:"features,omitempty"`
}

// Signals are the four [0,1] scores a RankedDoc's score is blended from.
type Signals struct {
	Relevance     float64 `json:"relevance"`
	Recency       float64 `json:"recency"`
	SourceQuality float64 `json:"sourceQuality"`
	Coverage      float64 `json:"coverage"`
}

// RankedDoc is a document positioned in the final ranking, carrying both the
// extracted content and the signals/score that produced its position.
type RankedDoc struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Excerpt       string           `json:"excerpt"`
	Domain        string           `json:"domain"`
	PublishedDate *time.Time       `json:"publishedDate,omitempty"`
	Features      *ContentFeatures `json:"features,omitempty"`
	Signals       Signals          `json:"signals"`
	Score         float64          `json:"score"`
	RankingReason string           `json:"rankingReason"`
}

// Citation ties an in-text citation index to a source and the passage it
// draws from.
type Citation struct {
	Index    int    `json:"index"`
	SourceID string `json:"sourceId"`
	Passage  string `json:"passage"`
}

// AnswerPacket is the terminal artifact of one pipeline request.
type AnswerPacket struct {
	QueryID   string      `json:"queryId"`
	Text      string      `json:"text"`
	Citations []Citation  `json:"citations"`
	Sources   []RankedDoc `json:"sources"`
}

// ArmStats are the real-valued Beta sufficient statistics for one arm.
type ArmStats struct {
	Successes float64 `json:"successes"`
	Failures  float64 `json:"failures"`
}

// PendingImpression is an unresolved impression awaiting click-or-timeout.
type PendingImpression struct {
	Arms      []string  `json:"arms"`
	QueryID   string    `json:"queryId"`
	SourceID  string    `json:"sourceId"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType enumerates the client-emitted interaction events.
type EventType string

const (
	SourceClicked    EventType = "SOURCE_CLICKED"
	CitationClicked  EventType = "CITATION_CLICKED"
	CitationHovered  EventType = "CITATION_HOVERED"
	SourceExpanded   EventType = "SOURCE_EXPANDED"
	AnswerSaved      EventType = "ANSWER_SAVED"
)

// EventMeta is the closed union of metadata a UserEvent may carry. Unknown
// keys sent by a client are ignored at the decoding boundary.
type EventMeta struct {
	Features          *ContentFeatures  `json:"features,omitempty"`
	CitationNumber    *int              `json:"citationNumber,omitempty"`
	AllSourceFeatures []ContentFeatures `json:"allSourceFeatures,omitempty"`
}

// UserEvent is one append-only log entry.
type UserEvent struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"eventType"`
	SourceID  string    `json:"sourceId,omitempty"`
	QueryID   string    `json:"queryId,omitempty"`
	Meta      EventMeta `json:"meta,omitempty"`
}

// ArmScore is one entry of a top-K bandit score listing.
type ArmScore struct {
	Arm   string  `json:"arm"`
	Score float64 `json:"score"`
}
