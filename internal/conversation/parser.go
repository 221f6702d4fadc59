package conversation

import (
	"strings"

	"vibelog/internal/domain"
)

const (
	matchConfidence   = 0.9
	unknownConfidence = 0.3

	// ConfidenceThreshold is the minimum parser confidence below which the
	// engine asks for clarification instead of dispatching.
	ConfidenceThreshold = 0.7
)

// commandPatterns pairs a command type with the phrases that trigger it.
type commandPatterns struct {
	cmd      domain.CommandType
	patterns []string
}

// commandTable is checked in declared order and the first category with a
// matching phrase wins. The order is load-bearing: destructive or more
// specific intents come first, so "start over" hits regenerate before the
// looser "start" pattern of generate can claim it.
var commandTable = []commandPatterns{
	{domain.CommandRegenerate, []string{
		"start over", "start again", "start from scratch", "from scratch",
		"regenerate", "new draft", "redo", "scrap it", "throw it away",
		"completely different",
	}},
	{domain.CommandEdit, []string{
		"make it", "make the", "change", "edit", "shorter", "longer",
		"rephrase", "reword", "rewrite the", "add a", "add more", "remove",
		"take out", "tone", "spicier", "funnier", "more formal", "less formal",
		"fix the", "tweak", "adjust", "instead of",
	}},
	{domain.CommandApprove, []string{
		"approve", "approved", "looks good", "looks great", "lgtm",
		"perfect", "love it", "ship it", "that works", "go ahead",
		"i like it", "yes, do it",
	}},
	{domain.CommandCancel, []string{
		"cancel", "never mind", "nevermind", "forget it", "stop",
		"quit", "abort", "leave it",
	}},
	{domain.CommandPublish, []string{
		"publish", "post it", "post this", "share it", "share this",
		"send it", "put it up", "go live", "tweet it", "release it",
	}},
	{domain.CommandGenerate, []string{
		"write", "create", "draft", "compose", "start", "generate",
		"make a", "make me", "blog about", "post about", "vibelog",
		"tell the story", "talk about",
	}},
}

// Parse converts free-form user text into a typed command. It is a pure
// function over its input and the static pattern table: a phrase match
// yields 0.9 confidence, no match yields unknown at 0.3. The caller is
// expected to trim the input and reject empty turns.
func Parse(text string) domain.ParsedCommand {
	lower := strings.ToLower(text)

	for _, entry := range commandTable {
		for _, p := range entry.patterns {
			if strings.Contains(lower, p) {
				return domain.ParsedCommand{
					Type:       entry.cmd,
					Intent:     text,
					Confidence: matchConfidence,
				}
			}
		}
	}

	return domain.ParsedCommand{
		Type:       domain.CommandUnknown,
		Intent:     text,
		Confidence: unknownConfidence,
	}
}
