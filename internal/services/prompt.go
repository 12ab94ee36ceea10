package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildScreeningPrompt creates the per-candidate screening prompt.
func (pb *PromptBuilder) BuildScreeningPrompt(jobTitle, jobDescription, resumeText string) string {
	return fmt.Sprintf(`Role: Technical Recruiter screening candidates for a %s position.
Task: High-precision evaluation of one candidate against the job description.

Relevance: if the document is not a CV or résumé, every score is 0.

Scoring (each pillar 0-100, total is the weighted sum):
1. tech_fit (Weight: 40%%) - Required tech stack and tools present in the CV
2. exp_fit (Weight: 40%%) - Seniority and years of relevant experience. If the candidate lacks the required years of experience, penalize exp_fit heavily.
3. edu_fit (Weight: 20%%) - Education and certifications relevant to the role

Return ONLY a JSON object in this format:
{
  "name": "<candidate full name>",
  "total": <0-100 integer>,
  "tech_fit": <0-100 integer>,
  "exp_fit": <0-100 integer>,
  "edu_fit": <0-100 integer>,
  "verdict": "<one or two sentence hiring verdict>",
  "strengths": ["<strength>", "..."],
  "gaps": ["<gap>", "..."]
}

JOB DESCRIPTION:
%s

CANDIDATE CV:
%s`,
		strings.TrimSpace(jobTitle), strings.TrimSpace(jobDescription), strings.TrimSpace(resumeText))
}

// BuildSearchQuery turns a recruiter's free-text talent pool query into the text that gets embedded.
func (pb *PromptBuilder) BuildSearchQuery(query string) string {
	return fmt.Sprintf("Candidate résumé with experience in: %s", strings.TrimSpace(query))
}
