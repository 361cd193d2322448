// Package command extracts deploy commands from comment text.
package command

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"feedo/internal/domain"
)

// Ticker constraints: uppercased, 3-10 characters, A-Z and 0-9 only.
const (
	MinTickerLen = 3
	MaxTickerLen = 10
)

var tickerRe = regexp.MustCompile(`^[A-Z0-9]+$`)

// handlePatterns holds the compiled patterns for one target handle.
type handlePatterns struct {
	mention  *regexp.Regexp
	commands [2]*regexp.Regexp
}

// patternCache caches compiled per-handle patterns. The target handle is
// fixed for the lifetime of the process, so this holds one entry in
// practice.
var patternCache sync.Map // handle -> *handlePatterns

// patternsFor returns the mention check and the verb-bearing and bare
// command patterns for a handle.
func patternsFor(handle string) *handlePatterns {
	if v, ok := patternCache.Load(handle); ok {
		return v.(*handlePatterns)
	}
	quoted := regexp.QuoteMeta(handle)
	patterns := &handlePatterns{
		// The mention must end at a handle boundary: usernames are made
		// of letters, digits, dots and underscores, so @feedo3apple is
		// not a mention of @feedo3app.
		mention: regexp.MustCompile(fmt.Sprintf(`(?i)@%s(?:[^a-z0-9._]|$)`, quoted)),
		commands: [2]*regexp.Regexp{
			// @handle deploy NAME $TICKER
			regexp.MustCompile(fmt.Sprintf(`(?i)@%s\s+(?:deploy|launch)\s+(\w+)\s+\$(\w+)`, quoted)),
			// @handle NAME $TICKER
			regexp.MustCompile(fmt.Sprintf(`(?i)@%s\s+(\w+)\s+\$(\w+)`, quoted)),
		},
	}
	patternCache.Store(handle, patterns)
	return patterns
}

// Parse extracts a deploy Command from comment text.
//
// Two surface forms are accepted: "@handle deploy NAME $TICKER" and
// "@handle NAME $TICKER". The verb-bearing form is tried first and the
// first match wins. Parse is pure and total: any input yields either a
// valid Command or a rejection reason, never both and never a panic.
func Parse(text, targetHandle string) (domain.Command, domain.RejectReason) {
	patterns := patternsFor(targetHandle)
	if !patterns.mention.MatchString(text) {
		return domain.Command{}, domain.RejectNotMentioned
	}

	for _, re := range patterns.commands {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := m[1]
		ticker := strings.ToUpper(m[2])
		if !validTicker(ticker) {
			return domain.Command{}, domain.RejectInvalidTicker
		}
		return domain.Command{Name: name, Ticker: ticker}, domain.RejectNone
	}

	return domain.Command{}, domain.RejectNoCommand
}

// validTicker reports whether a (already uppercased) ticker satisfies the
// length and character constraints.
func validTicker(ticker string) bool {
	if len(ticker) < MinTickerLen || len(ticker) > MaxTickerLen {
		return false
	}
	return tickerRe.MatchString(ticker)
}
