// Package plagiarism flags answers that are identical once case and spacing
// are ignored, either repeated within one answer sheet or shared between two
// students on the same question.
package plagiarism

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Answer is one answer of a student.
type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"answer"`
}

// Student is the answer sheet of one student.
type Student struct {
	ID      string   `json:"student_id"`
	Answers []Answer `json:"answers"`
}

// Repeat is a pair of questions on one sheet with the same answer.
type Repeat struct {
	StudentID string `json:"student_id"`
	QuestionA string `json:"question_a"`
	QuestionB string `json:"question_b"`
	Answer    string `json:"answer"`
}

// Match is a question two students answered identically.
type Match struct {
	StudentA   string `json:"student_a"`
	StudentB   string `json:"student_b"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"identical_answer"`
}

// Report collects every repeat and match found among a set of students.
type Report struct {
	Repeats []Repeat `json:"within_student"`
	Matches []Match  `json:"across_students"`
}

// Flagged reports whether anything was found.
func (r *Report) Flagged() bool { return len(r.Repeats)+len(r.Matches) > 0 }

// Normalize folds case, applies compatibility normalization and collapses
// whitespace, so "  The  Cell " and "the cell" compare equal.
func Normalize(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(norm.NFKC.String(s))), " ")
}

// WithinStudent returns every pair of answers on s that are identical. Blank
// answers never match. Pairs are ordered by the position of their answers.
func WithinStudent(s Student) []Repeat {
	normalized := normalizeAll(s.Answers)
	var repeats []Repeat
	for i := range normalized {
		if normalized[i] == "" {
			continue
		}
		for j := i + 1; j < len(normalized); j++ {
			if normalized[i] == normalized[j] {
				repeats = append(repeats, Repeat{
					StudentID: s.ID,
					QuestionA: s.Answers[i].QuestionID,
					QuestionB: s.Answers[j].QuestionID,
					Answer:    s.Answers[i].Text,
				})
			}
		}
	}
	return repeats
}

// AcrossStudents returns every question that two students answered
// identically. Answers are paired by question ID; blank answers never match.
// Matches are ordered by student pair in input order, then by the first
// student's answer order.
func AcrossStudents(students []Student) []Match {
	byQuestion := make([]map[string]string, len(students))
	for i, s := range students {
		m := make(map[string]string, len(s.Answers))
		for _, a := range s.Answers {
			m[a.QuestionID] = Normalize(a.Text)
		}
		byQuestion[i] = m
	}

	var matches []Match
	for i, a := range students {
		for j := i + 1; j < len(students); j++ {
			b := students[j]
			for _, ans := range a.Answers {
				want := byQuestion[i][ans.QuestionID]
				if want == "" {
					continue
				}
				if other, ok := byQuestion[j][ans.QuestionID]; ok && other == want {
					matches = append(matches, Match{
						StudentA:   a.ID,
						StudentB:   b.ID,
						QuestionID: ans.QuestionID,
						Answer:     ans.Text,
					})
				}
			}
		}
	}
	return matches
}

// Check runs both checks over students.
func Check(students []Student) *Report {
	report := &Report{Matches: AcrossStudents(students)}
	for _, s := range students {
		report.Repeats = append(report.Repeats, WithinStudent(s)...)
	}
	return report
}

func normalizeAll(answers []Answer) []string {
	out := make([]string, len(answers))
	for i, a := range answers {
		out[i] = Normalize(a.Text)
	}
	return out
}
