// Package grading scores exam answers against an answer key with fixed rules.
//
// Each question carries a type tag. Multiple-choice answers must match the key
// exactly, fill-in answers earn half credit when they contain the key, and
// descriptive answers earn credit in proportion to the rubric keywords they
// mention.
package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// QuestionType selects the rule used to score a question.
type QuestionType int

const (
	// MultipleChoice answers score full points on a case-insensitive exact match.
	MultipleChoice QuestionType = iota + 1
	// FillIn answers score full points on a normalized match and half points
	// when the answer contains the expected text.
	FillIn
	// Descriptive answers score the share of rubric keywords they mention.
	Descriptive
)

// QuestionTypes lists every known question type.
var QuestionTypes = []QuestionType{MultipleChoice, FillIn, Descriptive}

func (t QuestionType) String() string {
	switch t {
	case MultipleChoice:
		return "mcq"
	case FillIn:
		return "fillup"
	case Descriptive:
		return "descriptive"
	}
	return fmt.Sprintf("QuestionType(%d)", int(t))
}

// MarshalText encodes the type by tag.
func (t QuestionType) MarshalText() ([]byte, error) {
	switch t {
	case MultipleChoice, FillIn, Descriptive:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
}

// UnmarshalText decodes a type tag produced by MarshalText.
func (t *QuestionType) UnmarshalText(b []byte) error {
	for _, cand := range QuestionTypes {
		if cand.String() == string(b) {
			*t = cand
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownType, string(b))
}

// DefaultPoints is the value of a question whose rubric gives none.
const DefaultPoints = 5.0

var (
	// ErrUnknownType is returned for a question type tag outside QuestionTypes.
	ErrUnknownType = errors.New("unknown question type")
	// ErrExamMismatch is returned when a submission names a different exam.
	ErrExamMismatch = errors.New("submission is for a different exam")
)

// Rubric holds the marking scheme of one question.
type Rubric struct {
	Points   float64  `json:"points"`
	Keywords []string `json:"keywords,omitempty"`
}

// Question is one entry of an answer key.
type Question struct {
	ID            string       `json:"question_id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"question_text,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Rubric        Rubric       `json:"rubric"`
}

// MaxPoints returns the points available for q.
func (q Question) MaxPoints() float64 {
	if q.Rubric.Points == 0 {
		return DefaultPoints
	}
	return q.Rubric.Points
}

// AnswerKey is the reference solution of an exam.
type AnswerKey struct {
	ExamID    string     `json:"exam_id"`
	Questions []Question `json:"answer_key"`
}

// Validate checks that every question has a unique ID, a known type and a
// non-negative point value.
func (k *AnswerKey) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(k.Questions))
	for i, q := range k.Questions {
		if q.ID == "" {
			errs = append(errs, fmt.Errorf("question %d: question_id is required", i+1))
			continue
		}
		id := CanonicalID(q.ID)
		if seen[id] {
			errs = append(errs, fmt.Errorf("question %s: duplicate question_id", q.ID))
		}
		seen[id] = true
		if _, err := q.Type.MarshalText(); err != nil {
			errs = append(errs, fmt.Errorf("question %s: %w", q.ID, err))
		}
		if q.Rubric.Points < 0 {
			errs = append(errs, fmt.Errorf("question %s: points must be non-negative, got %g", q.ID, q.Rubric.Points))
		}
	}
	return errors.Join(errs...)
}

// Answer is a student's response to one question.
type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"answer"`
}

// Submission is one student's answer sheet.
type Submission struct {
	ExamID    string   `json:"exam_id,omitempty"`
	StudentID string   `json:"student_id"`
	Answers   []Answer `json:"answers"`
}

// Validate checks that the submission names a student and answers each
// question at most once.
func (s *Submission) Validate() error {
	if s.StudentID == "" {
		return errors.New("student_id is required")
	}
	seen := make(map[string]bool, len(s.Answers))
	for _, a := range s.Answers {
		id := CanonicalID(a.QuestionID)
		if seen[id] {
			return fmt.Errorf("question %s answered more than once", a.QuestionID)
		}
		seen[id] = true
	}
	return nil
}

// LoadAnswerKey reads and validates an answer key JSON file.
func LoadAnswerKey(path string) (*AnswerKey, error) {
	var k AnswerKey
	if err := readJSON(path, &k); err != nil {
		return nil, err
	}
	if err := k.Validate(); err != nil {
		return nil, fmt.Errorf("invalid answer key %s: %w", path, err)
	}
	return &k, nil
}

// LoadSubmission reads and validates a submission JSON file.
func LoadSubmission(path string) (*Submission, error) {
	var s Submission
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission %s: %w", path, err)
	}
	return &s, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
