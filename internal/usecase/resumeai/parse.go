package resumeai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	fencePattern = regexp.MustCompile("```json\\n?|```\\n?")
	bulletPrefix = regexp.MustCompile(`^[-•*]\s*`)
	skillPrefix  = regexp.MustCompile(`^[-•*\d.]+\s*`)

	errNullDocument = errors.New("model returned null")
)

// Line fallbacks keep bullets longer than minFallbackBullet runes and at most maxFallbackSkills skills.
const (
	minFallbackBullet  = 10
	maxFallbackSkills  = 10
	fallbackCategory   = "Technical"
	fallbackImportance = "Medium"
)

// stripFences removes markdown code fences the model wraps around JSON.
func stripFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// decodeModelJSON strictly decodes the model output after fence stripping.
func decodeModelJSON[T any](text string) (T, error) {
	var out T
	cleaned := stripFences(text)
	if cleaned == "null" {
		return out, errNullDocument
	}
	err := json.Unmarshal([]byte(cleaned), &out)
	return out, err
}

// nonEmptyLines splits text into trimmed lines after removing prefix from each.
func nonEmptyLines(text string, prefix *regexp.Regexp) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if l := strings.TrimSpace(prefix.ReplaceAllString(line, "")); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func parseBullets(text string) BulletsResponse {
	if bullets, err := decodeModelJSON[[]string](text); err == nil {
		if bullets == nil {
			bullets = []string{}
		}
		return BulletsResponse{Bullets: bullets}
	}

	bullets := []string{}
	for _, line := range nonEmptyLines(text, bulletPrefix) {
		if utf8.RuneCountInString(line) > minFallbackBullet {
			bullets = append(bullets, line)
		}
	}
	return BulletsResponse{Bullets: bullets, Partial: true}
}

func parseSkills(text string) SkillsResponse {
	if skills, err := decodeModelJSON[[]SkillSuggestion](text); err == nil {
		if skills == nil {
			skills = []SkillSuggestion{}
		}
		return SkillsResponse{Skills: skills}
	}

	skills := []SkillSuggestion{}
	for _, line := range nonEmptyLines(text, skillPrefix) {
		skills = append(skills, SkillSuggestion{
			Name:       line,
			Category:   fallbackCategory,
			Importance: fallbackImportance,
		})
		if len(skills) == maxFallbackSkills {
			break
		}
	}
	return SkillsResponse{Skills: skills, Partial: true}
}

func parseATS(text string) ATSAnalysis {
	if analysis, err := decodeModelJSON[ATSAnalysis](text); err == nil {
		analysis.Partial = false
		analysis.RawResponse = ""
		return analysis
	}
	return ATSAnalysis{
		Score:        70,
		Summary:      "Analysis completed with partial results",
		Strengths:    []string{"Resume contains relevant content"},
		Improvements: []string{"Consider adding more keywords"},
		Keywords:     KeywordMatch{Found: []string{}, Missing: []string{}},
		Partial:      true,
		RawResponse:  text,
	}
}

func parseImprovement(text string) ImprovementAnalysis {
	if analysis, err := decodeModelJSON[ImprovementAnalysis](text); err == nil {
		analysis.Partial = false
		analysis.RawResponse = ""
		return analysis
	}
	return ImprovementAnalysis{
		OverallScore:    70,
		Summary:         "Resume analyzed with partial results.",
		Sections:        map[string]SectionFeedback{},
		TopPriorities:   []string{"Add more quantifiable achievements"},
		MissingKeywords: []string{},
		Partial:         true,
		RawResponse:     text,
	}
}

func parseReview(text string) ResumeReview {
	if review, err := decodeModelJSON[ResumeReview](text); err == nil {
		review.Partial = false
		review.RawResponse = ""
		return review
	}
	return ResumeReview{
		OverallScore:    75,
		OverallFeedback: "Resume reviewed with partial results.",
		Sections:        map[string]SectionFeedback{},
		Strengths:       []string{"Resume contains relevant content"},
		Improvements:    []string{"Consider adding more quantifiable achievements"},
		TopPriorities:   []string{"Improve content specificity"},
		Partial:         true,
		RawResponse:     text,
	}
}
