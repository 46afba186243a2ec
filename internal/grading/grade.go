package grading

import (
	"fmt"
	"strings"
)

// Flags attached to a Result.
const (
	FlagPartialOrIncorrect = "partial_or_incorrect"
	FlagUnanswered         = "unanswered"
)

// Result is the mark for one question.
type Result struct {
	QuestionID  string       `json:"question_id"`
	Type        QuestionType `json:"type"`
	Awarded     float64      `json:"mark_awarded"`
	Max         float64      `json:"max_mark"`
	Confidence  float64      `json:"confidence"`
	Explanation string       `json:"explanation"`
	Flags       []string     `json:"flags"`
}

// Report is the graded answer sheet of one student.
type Report struct {
	ExamID    string   `json:"exam_id"`
	StudentID string   `json:"student_id"`
	Results   []Result `json:"evaluation"`
	Total     float64  `json:"total_score"`
	Max       float64  `json:"total_max"`
	// Ratio is Total over Max, or 0 for an empty key.
	Ratio float64 `json:"score_ratio"`
	// Unmatched lists answered question IDs that are not in the key.
	Unmatched []string `json:"unmatched,omitempty"`
}

// Grade scores a submission against key. Results follow the order of the key;
// a question without an answer scores zero and is flagged as unanswered.
func Grade(key *AnswerKey, sub *Submission) (*Report, error) {
	if sub.ExamID != "" && key.ExamID != "" && sub.ExamID != key.ExamID {
		return nil, fmt.Errorf("%w: key %s, submission %s", ErrExamMismatch, key.ExamID, sub.ExamID)
	}

	answers := make(map[string]string, len(sub.Answers))
	for _, a := range sub.Answers {
		answers[CanonicalID(a.QuestionID)] = a.Text
	}

	report := &Report{
		ExamID:    key.ExamID,
		StudentID: sub.StudentID,
		Results:   make([]Result, 0, len(key.Questions)),
	}
	known := make(map[string]bool, len(key.Questions))
	for _, q := range key.Questions {
		id := CanonicalID(q.ID)
		known[id] = true

		text, ok := answers[id]
		var res Result
		if ok && strings.TrimSpace(text) != "" {
			r, err := Score(q, text)
			if err != nil {
				return nil, err
			}
			res = r
		} else {
			if _, err := q.Type.MarshalText(); err != nil {
				return nil, fmt.Errorf("question %s: %w", q.ID, err)
			}
			res = Result{
				QuestionID:  q.ID,
				Type:        q.Type,
				Max:         q.MaxPoints(),
				Confidence:  confidenceExact,
				Explanation: "No answer given",
				Flags:       []string{FlagUnanswered},
			}
		}
		report.Results = append(report.Results, res)
		report.Total += res.Awarded
		report.Max += res.Max
	}

	for _, a := range sub.Answers {
		if !known[CanonicalID(a.QuestionID)] {
			report.Unmatched = append(report.Unmatched, a.QuestionID)
		}
	}

	report.Total = round2(report.Total)
	report.Max = round2(report.Max)
	if report.Max > 0 {
		report.Ratio = round2(report.Total / report.Max)
	}
	return report, nil
}

// CanonicalID folds question identifiers so "Q1", "q 1", "Question 1" and
// "1" name the same question.
func CanonicalID(id string) string {
	id = strings.ToLower(strings.Join(strings.Fields(id), ""))
	for _, prefix := range []string{"question", "q"} {
		if rest, ok := strings.CutPrefix(id, prefix); ok && rest != "" && isDigit(rest[0]) {
			return rest
		}
	}
	return id
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
