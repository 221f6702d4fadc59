package conversation

import (
	"strings"

	"vibelog/internal/domain"
)

const (
	tweetMaxLen = 280
	// chunkMaxLen leaves room for the "(n/m)" counter on thread parts.
	chunkMaxLen = 270
)

// BuildThread turns a draft into the canonical publish payload. The anchor
// tweet carries title, teaser, and the public link. In thread mode the full
// text follows as numbered replies, capped at the remote target's thread
// limit.
func BuildThread(draft domain.Draft, publicURL string, threadMode bool) []domain.Tweet {
	anchor := composeAnchor(draft, publicURL)
	thread := []domain.Tweet{{Text: anchor}}
	if !threadMode {
		return thread
	}

	chunks := splitChunks(draft.FullContent, chunkMaxLen)
	if len(chunks)+1 > domain.MaxThreadLen {
		chunks = chunks[:domain.MaxThreadLen-1]
	}
	for _, c := range chunks {
		thread = append(thread, domain.Tweet{Text: c})
	}
	return thread
}

func composeAnchor(draft domain.Draft, publicURL string) string {
	var b strings.Builder
	b.WriteString(draft.Title)
	if draft.Teaser != "" {
		b.WriteString("\n\n")
		b.WriteString(truncate(draft.Teaser, tweetMaxLen-len(draft.Title)-len(publicURL)-6))
	}
	if publicURL != "" {
		b.WriteString("\n\n")
		b.WriteString(publicURL)
	}
	return truncate(b.String(), tweetMaxLen)
}

// splitChunks breaks text into pieces of at most max bytes, preferring
// paragraph and then word boundaries.
func splitChunks(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= max {
			chunks = append(chunks, para)
			continue
		}
		words := strings.Fields(para)
		var cur strings.Builder
		for _, w := range words {
			if cur.Len() > 0 && cur.Len()+1+len(w) > max {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(w)
		}
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
		}
	}
	return chunks
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := strings.LastIndex(s[:max], " ")
	if cut < max/2 {
		cut = max
	}
	return strings.TrimSpace(s[:cut])
}
