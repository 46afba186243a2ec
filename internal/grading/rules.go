package grading

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Confidence reported for each rule. A full-credit match is certain; a
// miss may still be a legible variant the rule cannot see.
const (
	confidenceExact            = 1.0
	confidenceMultipleChoice   = 0.6
	confidenceFillIn           = 0.7
	confidenceKeywordHeuristic = 0.5
)

const fillInPartialCredit = 0.5

// fold applies compatibility normalization and case folding, so full-width
// and ligature forms produced by OCR compare equal to their plain spelling.
// A Caser holds state, so each call takes its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// normalize folds s and collapses every run of non-alphanumeric characters
// into a single space.
func normalize(s string) string {
	words := strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " ")
}

// Score grades one answer to q.
func Score(q Question, answer string) (Result, error) {
	res := Result{
		QuestionID: q.ID,
		Type:       q.Type,
		Max:        q.MaxPoints(),
	}
	switch q.Type {
	case MultipleChoice:
		res.Awarded, res.Explanation = scoreMultipleChoice(answer, q.CorrectAnswer, res.Max)
		res.Confidence = confidenceMultipleChoice
	case FillIn:
		res.Awarded, res.Explanation = scoreFillIn(answer, q.CorrectAnswer, res.Max)
		res.Confidence = confidenceFillIn
	case Descriptive:
		res.Awarded, res.Explanation = scoreDescriptive(answer, q.Rubric.Keywords, res.Max)
		res.Confidence = confidenceKeywordHeuristic
	default:
		return Result{}, fmt.Errorf("question %s: %w: %d", q.ID, ErrUnknownType, int(q.Type))
	}
	if res.Awarded == res.Max {
		res.Confidence = confidenceExact
	} else {
		res.Flags = append(res.Flags, FlagPartialOrIncorrect)
	}
	return res, nil
}

func scoreMultipleChoice(answer, correct string, points float64) (float64, string) {
	if fold(strings.TrimSpace(answer)) == fold(strings.TrimSpace(correct)) {
		return points, "Exact MCQ match"
	}
	return 0, fmt.Sprintf("MCQ mismatch: expected %s, got %s", correct, answer)
}

func scoreFillIn(answer, correct string, points float64) (float64, string) {
	got, want := normalize(answer), normalize(correct)
	switch {
	case got == want:
		return points, "Exact text match"
	case want != "" && strings.Contains(got, want):
		return round2(points * fillInPartialCredit), "Partial match (substring)"
	}
	return 0, "No match"
}

func scoreDescriptive(answer string, keywords []string, points float64) (float64, string) {
	if len(keywords) == 0 {
		return 0, "No keywords in rubric"
	}
	text := fold(answer)
	var found []string
	for _, k := range keywords {
		if strings.Contains(text, fold(k)) {
			found = append(found, k)
		}
	}
	ratio := float64(len(found)) / float64(len(keywords))
	return round2(points * ratio), fmt.Sprintf("Found %d/%d keywords: %s", len(found), len(keywords), strings.Join(found, ", "))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
