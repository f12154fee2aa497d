// Package summary reads and writes the delimited envelope that carries a
// compacted-history summary inside a system message.
//
// Envelope layout:
//
//	--- CONVERSATION SUMMARY (Saved ~120 tokens | Compacted: Jan 2, 3:04 PM) ---
//	<body>
//	--- END SUMMARY ---
//
// The parenthesised header part and each of its members are optional.
package summary

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	headerPrefix = "--- CONVERSATION SUMMARY"
	footer       = "--- END SUMMARY ---"

	// TimeLayout formats the "compacted at" label
	TimeLayout = "Jan 2, 3:04 PM"
)

var (
	envelopeRe = regexp.MustCompile(`(?s)--- CONVERSATION SUMMARY(?: \(([^)\n]*)\))? ---\n(.*?)\n?--- END SUMMARY ---`)
	savedRe    = regexp.MustCompile(`^Saved ~(\d+) tokens$`)
)

// Envelope is a parsed summary envelope
type Envelope struct {
	Body        string
	Stats       string // "Saved ~N tokens" when present
	TokensSaved *int
	CompactedAt string
}

// Format renders an envelope. A negative saved count omits the stats member
// and an empty label omits the compacted-at member.
func Format(body string, saved int, compactedAt string) string {
	var parts []string
	if saved >= 0 {
		parts = append(parts, fmt.Sprintf("Saved ~%d tokens", saved))
	}
	if compactedAt != "" {
		parts = append(parts, "Compacted: "+compactedAt)
	}

	header := headerPrefix
	if len(parts) > 0 {
		header += " (" + strings.Join(parts, " | ") + ")"
	}
	return header + " ---\n" + strings.TrimSpace(body) + "\n" + footer
}

// Compose appends a freshly formatted envelope to a base system prompt
func Compose(basePrompt, body string, saved int, at time.Time) string {
	env := Format(body, saved, at.Format(TimeLayout))
	basePrompt = strings.TrimSpace(basePrompt)
	if basePrompt == "" {
		return env
	}
	return basePrompt + "\n\n" + env
}

// Parse extracts the first envelope found in content
func Parse(content string) (Envelope, bool) {
	m := envelopeRe.FindStringSubmatch(content)
	if m == nil {
		return Envelope{}, false
	}

	env := Envelope{Body: strings.TrimSpace(m[2])}
	if m[1] != "" {
		for _, part := range strings.Split(m[1], "|") {
			part = strings.TrimSpace(part)
			switch {
			case strings.HasPrefix(part, "Compacted:"):
				env.CompactedAt = strings.TrimSpace(strings.TrimPrefix(part, "Compacted:"))
			case savedRe.MatchString(part):
				env.Stats = part
				n, err := strconv.Atoi(savedRe.FindStringSubmatch(part)[1])
				if err == nil {
					env.TokensSaved = &n
				}
			case part != "":
				// unknown member, surface it verbatim
				env.Stats = part
			}
		}
	}
	return env, true
}

// Split separates a system message into the base prompt that precedes the
// envelope and the previous summary body. Without an envelope the whole
// content is the base prompt.
func Split(content string) (base, previous string) {
	loc := envelopeRe.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, ""
	}
	base = strings.TrimSpace(content[:loc[0]])
	previous = strings.TrimSpace(content[loc[4]:loc[5]])
	return base, previous
}
