package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ironsheep/scan-align/internal/cleanup"
	"github.com/ironsheep/scan-align/internal/grading"
	"github.com/ironsheep/scan-align/internal/imaging"
	"github.com/ironsheep/scan-align/internal/ocr"
	"github.com/ironsheep/scan-align/internal/plagiarism"
	"github.com/ironsheep/scan-align/internal/skew"
)

func runGrade(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("grade", stderr)
	keyPath := fs.String("key", "", "Answer key JSON (required)")
	answers := fs.String("answers", "", "Submission JSON")
	page := fs.String("page", "", "Scanned answer sheet to align, clean and read instead of -answers")
	student := fs.String("student", "", "Student ID for -page")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"key": *keyPath}); err != nil {
		return err
	}
	if (*answers == "") == (*page == "") {
		fmt.Fprintln(fs.Output(), "Error: exactly one of -answers and -page is required")
		fs.Usage()
		return errUsage
	}
	if *page != "" {
		if err := required(fs, map[string]string{"student": *student}); err != nil {
			return err
		}
	}
	cfg, log, err := common.load(fs, stderr)
	if err != nil {
		return err
	}

	key, err := grading.LoadAnswerKey(*keyPath)
	if err != nil {
		return err
	}

	var sub *grading.Submission
	if *answers != "" {
		sub, err = grading.LoadSubmission(*answers)
		if err != nil {
			return err
		}
	} else {
		img, err := imaging.Open(*page)
		if err != nil {
			return err
		}
		res, err := skew.New(cfg.SkewOptions(log)).Align(ctx, img)
		if err != nil {
			return err
		}
		cleaned, err := cleanup.Clean(res.Image, cfg.Cleanup)
		if err != nil {
			return err
		}
		text, err := ocr.ExtractText(cleaned, cfg.OCRLanguage)
		if err != nil {
			return err
		}
		sub = &grading.Submission{
			ExamID:    key.ExamID,
			StudentID: *student,
			Answers:   grading.ParseAnswers(text.FullText),
		}
		log.Info("answers read from page", "page", *page, "answers", len(sub.Answers))
	}

	report, err := grading.Grade(key, sub)
	if err != nil {
		return err
	}
	if len(report.Unmatched) > 0 {
		log.Warn("answers for questions not in the key", "questions", strings.Join(report.Unmatched, ","))
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	for _, r := range report.Results {
		fmt.Fprintf(stdout, "%-6s %-11s %5.2f/%-5.2f %s\n", r.QuestionID, r.Type, r.Awarded, r.Max, r.Explanation)
	}
	fmt.Fprintf(stdout, "%s: %.2f/%.2f (%.0f%%)\n", report.StudentID, report.Total, report.Max, report.Ratio*100)
	return nil
}

func runPlagiarism(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("plagiarism", stderr)
	in := fs.String("in", "", "Directory of submission JSON files (required)")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"in": *in}); err != nil {
		return err
	}
	_, log, err := common.load(fs, stderr)
	if err != nil {
		return err
	}

	students, err := loadStudents(*in)
	if err != nil {
		return err
	}
	report := plagiarism.Check(students)
	log.Info("plagiarism check finished", "students", len(students),
		"repeats", len(report.Repeats), "matches", len(report.Matches))

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if !report.Flagged() {
		fmt.Fprintln(stdout, "no identical answers found")
		return nil
	}
	for _, r := range report.Repeats {
		fmt.Fprintf(stdout, "repeat %s: %s and %s: %q\n", r.StudentID, r.QuestionA, r.QuestionB, r.Answer)
	}
	for _, m := range report.Matches {
		fmt.Fprintf(stdout, "match  %s and %s on %s: %q\n", m.StudentA, m.StudentB, m.QuestionID, m.Answer)
	}
	return nil
}

// loadStudents reads every submission JSON file in dir, sorted by file name.
// Question IDs are canonicalized so "Q1" on one sheet pairs with "1" on another.
func loadStudents(dir string) ([]plagiarism.Student, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	students := make([]plagiarism.Student, 0, len(names))
	for _, name := range names {
		sub, err := grading.LoadSubmission(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		s := plagiarism.Student{ID: sub.StudentID}
		for _, a := range sub.Answers {
			s.Answers = append(s.Answers, plagiarism.Answer{QuestionID: grading.CanonicalID(a.QuestionID), Text: a.Text})
		}
		students = append(students, s)
	}
	return students, nil
}
