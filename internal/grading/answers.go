package grading

import (
	"regexp"
	"strings"
)

// answerMarker matches the start of an answer line: "Q1.", "q2)", "Question 3:",
// "4." or "5b -".
var answerMarker = regexp.MustCompile(`(?i)^\s*(?:q(?:uestion)?\s*)?(\d+[a-z]?)\s*[.):\-]\s*(.*)$`)

// ParseAnswers splits text recognised from an answer sheet into answers.
//
// A line starting with a question marker opens a new answer; the lines that
// follow are appended to it until the next marker. Text before the first
// marker, such as the sheet header, is dropped. A question answered twice
// keeps its last answer.
func ParseAnswers(text string) []Answer {
	var answers []Answer
	index := make(map[string]int)
	current := -1

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := answerMarker.FindStringSubmatch(line); m != nil {
			id := strings.ToLower(m[1])
			if i, ok := index[id]; ok {
				current = i
			} else {
				index[id] = len(answers)
				current = len(answers)
				answers = append(answers, Answer{QuestionID: id})
			}
			answers[current].Text = strings.TrimSpace(m[2])
			continue
		}
		if current < 0 {
			continue
		}
		if answers[current].Text == "" {
			answers[current].Text = line
		} else {
			answers[current].Text += " " + line
		}
	}
	return answers
}
