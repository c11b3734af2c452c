package resumeai

import (
	"math"
	"strconv"
	"strings"

	"resume-gateway/pkg/ratelimit"
)

// Capability names one AI-backed operation.
type Capability string

const (
	CapabilitySummary       Capability = "summary"
	CapabilityBullets       Capability = "bullets"
	CapabilityATSScore      Capability = "ats-score"
	CapabilityCoverLetter   Capability = "cover-letter"
	CapabilitySuggestSkills Capability = "suggest-skills"
	CapabilityImprove       Capability = "improve"
	CapabilityReview        Capability = "review"
)

// Capabilities lists every capability in route order.
func Capabilities() []Capability {
	return []Capability{
		CapabilitySummary,
		CapabilityBullets,
		CapabilityATSScore,
		CapabilityCoverLetter,
		CapabilitySuggestSkills,
		CapabilityImprove,
		CapabilityReview,
	}
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, known := range Capabilities() {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultBuckets maps every capability to its quota bucket.
// The full review is heavier and has its own, stricter bucket.
func DefaultBuckets() map[Capability]string {
	buckets := make(map[Capability]string, len(Capabilities()))
	for _, c := range Capabilities() {
		buckets[c] = ratelimit.BucketDefault
	}
	buckets[CapabilityReview] = ratelimit.BucketReview
	return buckets
}

// SummaryRequest asks for a two or three sentence professional summary.
// Experience is free text or a list of {title, companyName}; Skills is free
// text or a list of {name}.
type SummaryRequest struct {
	JobTitle   string `json:"jobTitle"`
	Experience any    `json:"experience,omitempty"`
	Skills     any    `json:"skills,omitempty"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

// BulletsRequest asks for achievement bullet points for one resume entry.
type BulletsRequest struct {
	Context    string `json:"context"`
	JobTitle   string `json:"jobTitle,omitempty"`
	Experience any    `json:"experience,omitempty"`
	Skills     any    `json:"skills,omitempty"`
}

type BulletsResponse struct {
	Bullets []string `json:"bullets"`
	Partial bool     `json:"partial,omitempty"`
}

// ATSRequest asks for an applicant tracking system compatibility score.
type ATSRequest struct {
	ResumeContent  any    `json:"resumeContent"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// Score is a model-assigned rating. Models do not always emit a JSON integer:
// a fractional number or a numeric string is rounded to the nearest integer,
// and any other value leaves the score at zero instead of failing the document.
type Score int

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	*s = Score(math.Round(f))
	return nil
}

type KeywordMatch struct {
	Found   []string `json:"found"`
	Missing []string `json:"missing"`
}

type ATSAnalysis struct {
	Score        Score        `json:"score"`
	Summary      string       `json:"summary"`
	Strengths    []string     `json:"strengths"`
	Improvements []string     `json:"improvements"`
	Keywords     KeywordMatch `json:"keywords"`
	Partial      bool         `json:"partial,omitempty"`
	RawResponse  string       `json:"rawResponse,omitempty"`
}

// CoverLetterRequest asks for a cover letter for one application.
type CoverLetterRequest struct {
	JobTitle       string `json:"jobTitle"`
	CompanyName    string `json:"companyName"`
	ResumeContent  any    `json:"resumeContent,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
}

type CoverLetterResponse struct {
	CoverLetter string `json:"coverLetter"`
}

// SkillsRequest asks for skills worth adding for a role.
// CurrentSkills is a list of strings or a comma separated string.
type SkillsRequest struct {
	JobTitle      string `json:"jobTitle"`
	Industry      string `json:"industry,omitempty"`
	CurrentSkills any    `json:"currentSkills,omitempty"`
}

type SkillSuggestion struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Importance string `json:"importance"`
}

type SkillsResponse struct {
	Skills  []SkillSuggestion `json:"skills"`
	Partial bool              `json:"partial,omitempty"`
}

// ImproveRequest asks for section-by-section improvement suggestions.
type ImproveRequest struct {
	ResumeContent  any    `json:"resumeContent"`
	TargetJobTitle string `json:"targetJobTitle,omitempty"`
}

type SectionFeedback struct {
	Score       Score    `json:"score"`
	Feedback    string   `json:"feedback,omitempty"`
	Suggestions []string `json:"suggestions"`
}

type ImprovementAnalysis struct {
	OverallScore    Score                      `json:"overallScore"`
	Summary         string                     `json:"summary"`
	Sections        map[string]SectionFeedback `json:"sections"`
	TopPriorities   []string                   `json:"topPriorities"`
	MissingKeywords []string                   `json:"missingKeywords"`
	Partial         bool                       `json:"partial,omitempty"`
	RawResponse     string                     `json:"rawResponse,omitempty"`
}

// ReviewRequest asks for a comprehensive review of the whole resume.
type ReviewRequest struct {
	ResumeContent any `json:"resumeContent"`
}

type ATSCompatibility struct {
	Score           Score    `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

type ScoredIssues struct {
	Score  Score    `json:"score"`
	Issues []string `json:"issues"`
}

type FormattingFeedback struct {
	Score    Score  `json:"score"`
	Feedback string `json:"feedback"`
}

type ResumeReview struct {
	OverallScore       Score                      `json:"overallScore"`
	OverallFeedback    string                     `json:"overallFeedback"`
	Sections           map[string]SectionFeedback `json:"sections"`
	Strengths          []string                   `json:"strengths"`
	Improvements       []string                   `json:"improvements"`
	ATSCompatibility   *ATSCompatibility          `json:"atsCompatibility,omitempty"`
	GrammarAndSpelling *ScoredIssues              `json:"grammarAndSpelling,omitempty"`
	Formatting         *FormattingFeedback        `json:"formatting,omitempty"`
	TopPriorities      []string                   `json:"topPriorities"`
	Partial            bool                       `json:"partial,omitempty"`
	RawResponse        string                     `json:"rawResponse,omitempty"`
}

// fallbackReporter is implemented by responses that can be a parse fallback.
type fallbackReporter interface {
	fellBack() bool
}

func (r BulletsResponse) fellBack() bool     { return r.Partial }
func (r SkillsResponse) fellBack() bool      { return r.Partial }
func (r ATSAnalysis) fellBack() bool         { return r.Partial }
func (r ImprovementAnalysis) fellBack() bool { return r.Partial }
func (r ResumeReview) fellBack() bool        { return r.Partial }
