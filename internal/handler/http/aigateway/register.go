// Package aigateway exposes the resume AI capabilities over HTTP.
package aigateway

import (
	"github.com/go-chi/chi/v5"

	"resume-gateway/internal/handler/http/auth"
	"resume-gateway/internal/usecase/resumeai"
)

// Paths of the capability routes under /api/ai.
const (
	PathSummary       = "/generate-summary"
	PathBullets       = "/generate-bullets"
	PathATSScore      = "/ats-score"
	PathCoverLetter   = "/cover-letter"
	PathSuggestSkills = "/suggest-skills"
	PathImprove       = "/improve-resume"
	PathReview        = "/review-resume"
)

// Register mounts every capability under /api/ai behind JWT authentication.
func Register(r chi.Router, gw *resumeai.Gateway, jwtSecret []byte) {
	r.Route("/api/ai", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Post(PathSummary, serve(gw.GenerateSummary, "Failed to generate summary. Please try again."))
		r.Post(PathBullets, serve(gw.GenerateBullets, "Failed to generate bullet points. Please try again."))
		r.Post(PathATSScore, serve(gw.ScoreATS, "Failed to analyze resume"))
		r.Post(PathCoverLetter, serve(gw.GenerateCoverLetter, "Failed to generate cover letter"))
		r.Post(PathSuggestSkills, serve(gw.SuggestSkills, "Failed to suggest skills"))
		r.Post(PathImprove, serve(gw.ImproveResume, "Failed to analyze resume"))
		r.Post(PathReview, serve(gw.ReviewResume, "Failed to review resume"))
	})
}
