package inspector

import (
	"regexp"
	"strings"
)

// LineKind tags a rendered line for presentation
type LineKind string

const (
	LineSection      LineKind = "section"
	LineFileBoundary LineKind = "file_boundary"
	LineRole         LineKind = "role"
	LineAnnotation   LineKind = "annotation"
	LinePlaceholder  LineKind = "placeholder"
	LineText         LineKind = "text"
)

// Line is one classified line of an inspection document
type Line struct {
	Kind LineKind `json:"kind"`
	Text string   `json:"text"`
}

var (
	sectionRe    = regexp.MustCompile(`^=== [A-Z ]+ ===$`)
	fileRe       = regexp.MustCompile(`^--- (FILE: .+|END FILE) ---$`)
	roleRe       = regexp.MustCompile(`^\[(user|assistant|tool|system)\]: `)
	annotationRe = regexp.MustCompile(`^\(Tool Call: [^)]*\)$`)
	placeholdRe  = regexp.MustCompile(`^\[content not loaded: .*\]$`)
)

// Classify splits a document into lines and tags each one. The tags are
// presentation hints only.
func Classify(text string) []Line {
	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, Line{Kind: classifyLine(l), Text: l})
	}
	return lines
}

func classifyLine(l string) LineKind {
	switch {
	case sectionRe.MatchString(l):
		return LineSection
	case fileRe.MatchString(l):
		return LineFileBoundary
	case roleRe.MatchString(l):
		return LineRole
	case annotationRe.MatchString(l):
		return LineAnnotation
	case placeholdRe.MatchString(l):
		return LinePlaceholder
	default:
		return LineText
	}
}
