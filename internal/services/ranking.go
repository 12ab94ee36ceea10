package services

import (
	"sort"
	"strings"

	"talentscan/cv-screener/internal/models"
)

// RankCandidates orders candidates by score, highest first, breaking ties by name, and numbers them from 1.
func RankCandidates(candidates []models.CandidateLog) []models.RankedCandidate {
	sorted := make([]models.CandidateLog, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return strings.ToLower(sorted[i].CandidateName) < strings.ToLower(sorted[j].CandidateName)
	})

	ranked := make([]models.RankedCandidate, len(sorted))
	for i, c := range sorted {
		ranked[i] = models.RankedCandidate{Rank: i + 1, CandidateLog: c}
	}
	return ranked
}

// Shortlist returns the first n ranked candidates; n <= 0 keeps everyone.
func Shortlist(ranked []models.RankedCandidate, n int) []models.RankedCandidate {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}

func FilterByJobTitle(candidates []models.CandidateLog, jobTitle string) []models.CandidateLog {
	if jobTitle == "" {
		return candidates
	}
	filtered := make([]models.CandidateLog, 0, len(candidates))
	for _, c := range candidates {
		if c.JobTitle == jobTitle {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
