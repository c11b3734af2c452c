package resumeai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt builders receive sanitized input only.

func summaryPrompt(jobTitle, experience, skills string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a professional resume summary for a %s with the following details:\n", jobTitle)
	if experience != "" {
		fmt.Fprintf(&b, "Experience: %s\n", experience)
	}
	if skills != "" {
		fmt.Fprintf(&b, "Key Skills: %s\n", skills)
	}
	b.WriteString(`
Requirements:
- Write 2-3 sentences maximum
- Be concise and impactful
- Include relevant keywords for ATS systems
- Highlight key achievements or strengths
- Use active voice and strong action words
- Do not include placeholder text like [Company Name]

Return ONLY the summary text, no quotes or additional formatting.`)
	return b.String()
}

func bulletsPrompt(entry, jobTitle, experience, skills string) string {
	if jobTitle == "" {
		jobTitle = "professional"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generate 3-4 professional resume bullet points for a %s.\n\n", jobTitle)
	fmt.Fprintf(&b, "Context: %s\n", entry)
	if experience != "" {
		fmt.Fprintf(&b, "Experience Details: %s\n", experience)
	}
	if skills != "" {
		fmt.Fprintf(&b, "Relevant Skills: %s\n", skills)
	}
	b.WriteString(`
Requirements:
- Start each bullet with a strong action verb
- Include quantifiable achievements where possible (use realistic numbers)
- Be specific and results-oriented
- Keep each bullet to 1-2 lines maximum
- Make them ATS-friendly with relevant keywords
- Do not use generic phrases or placeholders

Return ONLY the bullet points as a JSON array of strings, for example:
["Bullet 1", "Bullet 2", "Bullet 3"]`)
	return b.String()
}

func atsPrompt(content map[string]any, jobDescription string) string {
	var b strings.Builder
	b.WriteString("Analyze this resume for ATS (Applicant Tracking System) compatibility and provide a score and recommendations.\n\n")
	fmt.Fprintf(&b, "Resume Content:\n%s\n\n", encodeContent(content, false))
	if jobDescription != "" {
		fmt.Fprintf(&b, "Target Job Description:\n%s\n\n", jobDescription)
	}
	b.WriteString(`Provide your analysis in the following JSON format (return ONLY valid JSON, no markdown):
{
    "score": 75,
    "summary": "one sentence summary of ATS compatibility",
    "strengths": ["strength 1", "strength 2", "strength 3"],
    "improvements": ["improvement 1", "improvement 2", "improvement 3"],
    "keywords": {
        "found": ["keyword 1", "keyword 2"],
        "missing": ["keyword 1", "keyword 2"]
    }
}

Consider these factors:
1. Clear section headings
2. Proper formatting (no tables, columns, or graphics)
3. Relevant keywords matching job description
4. Action verbs and quantifiable achievements
5. Contact information completeness
6. Skills alignment with job requirements`)
	return b.String()
}

func coverLetterPrompt(content map[string]any, jobTitle, company, jobDescription string) string {
	personal, _ := content["personalDetails"].(map[string]any)

	applicantTitle := field(personal, "jobTitle")
	if applicantTitle == "" {
		applicantTitle = jobTitle
	}

	var b strings.Builder
	b.WriteString("Generate a professional cover letter for the following:\n\n")
	fmt.Fprintf(&b, "Applicant Name: %s\n", strings.TrimSpace(field(personal, "firstName")+" "+field(personal, "lastName")))
	fmt.Fprintf(&b, "Current/Target Job Title: %s\n", applicantTitle)
	fmt.Fprintf(&b, "Email: %s\n", field(personal, "email"))
	fmt.Fprintf(&b, "Phone: %s\n\n", field(personal, "phone"))
	fmt.Fprintf(&b, "Applying for: %s at %s\n\n", jobTitle, company)
	if jobDescription != "" {
		fmt.Fprintf(&b, "Job Description:\n%s\n\n", jobDescription)
	}

	experience := objectLines(content["experience"], func(entry map[string]any) string {
		company := field(entry, "company")
		if company == "" {
			company = field(entry, "companyName")
		}
		if company == "" {
			return "- " + field(entry, "title")
		}
		return fmt.Sprintf("- %s at %s", field(entry, "title"), company)
	})
	fmt.Fprintf(&b, "Experience Summary:\n%s\n\n", orNotProvided(strings.Join(experience, "\n")))

	skills := objectLines(content["skills"], func(entry map[string]any) string {
		return field(entry, "name")
	})
	fmt.Fprintf(&b, "Key Skills:\n%s\n", orNotProvided(strings.Join(skills, ", ")))

	b.WriteString(`
Requirements:
- Write a compelling, personalized cover letter
- 3-4 paragraphs maximum
- Professional but engaging tone
- Highlight relevant experience and skills
- Show enthusiasm for the role and company
- Include a strong opening and closing
- Do NOT include placeholder text like [Your Name] - use actual details provided
- Format: Plain text with proper paragraph breaks

Return ONLY the cover letter text, no additional formatting or instructions.`)
	return b.String()
}

func skillsPrompt(jobTitle, industry string, current []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest relevant skills for a %s position", jobTitle)
	if industry != "" {
		fmt.Fprintf(&b, " in the %s industry", industry)
	}
	b.WriteString(".\n\n")
	if len(current) > 0 {
		fmt.Fprintf(&b, "Already listed skills: %s\n\n", strings.Join(current, ", "))
	}
	b.WriteString(`Requirements:
- Suggest 10 skills that would be valuable for this role
- Include a mix of technical and soft skills
- Order by relevance (most important first)
- Do NOT repeat skills already listed
- Focus on in-demand, ATS-friendly keywords

Return as a JSON array of objects with this format:
[
    { "name": "Skill Name", "category": "Technical", "importance": "High" },
    { "name": "Skill Name", "category": "Soft", "importance": "Medium" }
]

Return ONLY valid JSON, no markdown formatting.`)
	return b.String()
}

func improvePrompt(content map[string]any, targetJobTitle string) string {
	var b strings.Builder
	b.WriteString("Review this resume and provide specific, actionable improvement suggestions.\n\n")
	fmt.Fprintf(&b, "Resume Data:\n%s\n\n", encodeContent(content, true))
	if targetJobTitle != "" {
		fmt.Fprintf(&b, "Target Role: %s\n\n", targetJobTitle)
	}
	b.WriteString(`Analyze and provide suggestions in the following JSON format:
{
    "overallScore": 75,
    "summary": "2-3 sentence overall assessment",
    "sections": {
        "personalDetails": { "score": 8, "suggestions": ["suggestion1", "suggestion2"] },
        "summary": { "score": 6, "suggestions": ["suggestion1", "suggestion2"] },
        "experience": { "score": 7, "suggestions": ["suggestion1", "suggestion2"] },
        "education": { "score": 8, "suggestions": ["suggestion1"] },
        "skills": { "score": 7, "suggestions": ["suggestion1", "suggestion2"] }
    },
    "topPriorities": ["priority1", "priority2", "priority3"],
    "missingKeywords": ["keyword1", "keyword2"]
}

Focus on:
1. Quantifiable achievements (numbers, percentages)
2. Action verbs usage
3. Keyword optimization for ATS
4. Content relevance to target role
5. Professional formatting

Return ONLY valid JSON.`)
	return b.String()
}

func reviewPrompt(content map[string]any) string {
	var b strings.Builder
	b.WriteString("Conduct a comprehensive review of this resume and provide detailed feedback.\n\n")
	fmt.Fprintf(&b, "Resume Data:\n%s\n\n", encodeContent(content, true))
	b.WriteString(`Provide your analysis in the following JSON format:
{
    "overallScore": 85,
    "overallFeedback": "2-3 sentence summary of the resume's strengths and areas for improvement",
    "sections": {
        "personalDetails": { "score": 9, "feedback": "Specific feedback", "suggestions": ["suggestion 1", "suggestion 2"] },
        "summary": { "score": 7, "feedback": "Specific feedback", "suggestions": ["suggestion 1", "suggestion 2"] },
        "experience": { "score": 8, "feedback": "Specific feedback", "suggestions": ["suggestion 1", "suggestion 2"] },
        "education": { "score": 9, "feedback": "Specific feedback", "suggestions": ["suggestion 1"] },
        "skills": { "score": 7, "feedback": "Specific feedback", "suggestions": ["suggestion 1", "suggestion 2"] }
    },
    "strengths": ["strength 1", "strength 2", "strength 3"],
    "improvements": ["improvement 1", "improvement 2", "improvement 3"],
    "atsCompatibility": { "score": 80, "issues": ["issue 1", "issue 2"], "recommendations": ["rec 1", "rec 2"] },
    "grammarAndSpelling": { "score": 9, "issues": ["issue 1 if any"] },
    "formatting": { "score": 8, "feedback": "Formatting assessment" },
    "topPriorities": ["priority 1", "priority 2", "priority 3"]
}

Focus on:
1. Content quality and relevance
2. Quantifiable achievements
3. Action verbs and power words
4. ATS compatibility
5. Grammar and spelling
6. Formatting consistency
7. Keyword optimization
8. Overall impact and professionalism

Return ONLY valid JSON, no markdown.`)
	return b.String()
}

func encodeContent(content map[string]any, indent bool) string {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(content, "", "  ")
	} else {
		data, err = json.Marshal(content)
	}
	if err != nil {
		// Sanitized content holds only decoded JSON values.
		return "{}"
	}
	return string(data)
}

// field returns obj[key] when it is a string.
func field(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// objectLines maps every object of a JSON array through line, skipping empty results.
func objectLines(v any, line func(map[string]any) string) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if l := strings.TrimSpace(line(entry)); l != "" && l != "-" {
			out = append(out, l)
		}
	}
	return out
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}

// experienceText flattens free text or a list of {title, companyName} into one line.
func experienceText(v any) string {
	if items, ok := v.([]any); ok {
		parts := objectLines(items, func(entry map[string]any) string {
			title := field(entry, "title")
			if company := field(entry, "companyName"); company != "" {
				return strings.TrimSpace(title + " at " + company)
			}
			return title
		})
		return strings.Join(parts, ". ")
	}
	return scalarText(v)
}

// skillsText flattens free text or a list of {name} into a comma separated line.
func skillsText(v any) string {
	if items, ok := v.([]any); ok {
		parts := objectLines(items, func(entry map[string]any) string {
			return field(entry, "name")
		})
		return strings.Join(parts, ", ")
	}
	return scalarText(v)
}

// skillList turns a list of strings or a comma separated string into items for sanitize.Array.
func skillList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case string:
		parts := strings.Split(val, ",")
		items := make([]any, 0, len(parts))
		for _, p := range parts {
			items = append(items, p)
		}
		return items
	default:
		return nil
	}
}

func scalarText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		return ""
	}
}
