package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"talentscan/cv-screener/internal/models"
)

var ErrNoJSON = errors.New("no JSON object in model response")

// Evaluation is the normalized shape of one model reply.
type Evaluation struct {
	Name      string   `json:"name"`
	Total     int      `json:"total"`
	TechFit   *int     `json:"tech_fit,omitempty"`
	ExpFit    *int     `json:"exp_fit,omitempty"`
	EduFit    *int     `json:"edu_fit,omitempty"`
	Verdict   string   `json:"verdict"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

var (
	nameKeys    = []string{"name", "candidate_name"}
	totalKeys   = []string{"total", "score", "overall_score", "total_score"}
	verdictKeys = []string{"verdict", "summary"}
)

// ParseEvaluation turns a raw model reply into an Evaluation, filling defaults for anything missing.
func ParseEvaluation(raw, sourceFile string) (*Evaluation, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, ErrNoJSON
	}

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	var data map[string]any
	switch val := decoded.(type) {
	case map[string]any:
		data = val
	case []any:
		if len(val) == 0 {
			return nil, fmt.Errorf("%w: empty list", ErrNoJSON)
		}
		first, ok := val[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: list does not hold an object", ErrNoJSON)
		}
		data = first
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrNoJSON, decoded)
	}

	eval := &Evaluation{
		Name:      coerceString(lookup(data, nameKeys...)),
		TechFit:   optionalScore(data["tech_fit"]),
		ExpFit:    optionalScore(data["exp_fit"]),
		EduFit:    optionalScore(data["edu_fit"]),
		Verdict:   coerceString(lookup(data, verdictKeys...)),
		Strengths: coerceList(data["strengths"]),
		Gaps:      coerceList(data["gaps"]),
	}

	if total := coerceScore(lookup(data, totalKeys...)); !math.IsNaN(total) {
		eval.Total = clampScore(total)
	}
	if eval.Name == "" {
		eval.Name = DefaultCandidateName(sourceFile)
	}

	return eval, nil
}

// ToCandidateLog maps the evaluation onto a fresh history row.
func (e *Evaluation) ToCandidateLog(runID uuid.UUID, jobTitle, sourceFile string) *models.CandidateLog {
	return &models.CandidateLog{
		RunID:         runID,
		CandidateName: e.Name,
		Score:         e.Total,
		TechFit:       e.TechFit,
		ExpFit:        e.ExpFit,
		EduFit:        e.EduFit,
		Verdict:       e.Verdict,
		Strengths:     e.Strengths,
		Gaps:          e.Gaps,
		Notes:         models.StrengthsNote(e.Strengths),
		JobTitle:      jobTitle,
		Stage:         models.StageNew,
		SourceFile:    sourceFile,
	}
}

// DefaultCandidateName is the file name without directory or extension.
func DefaultCandidateName(sourceFile string) string {
	base := filepath.Base(strings.TrimSpace(sourceFile))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// extractJSON strips markdown fences and cuts the text down to the outermost object or array.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	arrayFirst := startArr != -1 && (startObj == -1 || startArr < startObj)

	if arrayFirst && endArr > startArr {
		return text[startArr : endArr+1]
	}
	if startObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	return ""
}

func lookup(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func optionalScore(v any) *int {
	f := coerceScore(v)
	if math.IsNaN(f) {
		return nil
	}
	score := clampScore(f)
	return &score
}

func clampScore(f float64) int {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return int(math.Round(f))
}

// coerceScore accepts numbers and strings such as "85", "85%" or "8.5/10".
func coerceScore(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		trimmed := strings.TrimSpace(val)
		trimmed = strings.TrimSuffix(trimmed, "%")
		if num, den, ok := strings.Cut(trimmed, "/"); ok {
			n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
			d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
			if errN != nil || errD != nil || d <= 0 {
				return math.NaN()
			}
			return n / d * 100
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceList(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}
