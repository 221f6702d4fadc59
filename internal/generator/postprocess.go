package generator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"vibelog/internal/domain"
)

var titlePattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)

const teaserFallbackLen = 160

// parseDraft splits the model's markdown into title, teaser, and full
// content. The title is the first h1; the teaser is the first non-heading
// paragraph. Both fall back to slices of the body when the model ignored
// the layout.
func parseDraft(raw string) (domain.GeneratedDraft, error) {
	md := strings.TrimSpace(raw)
	if md == "" {
		return domain.GeneratedDraft{}, fmt.Errorf("model returned an empty draft")
	}

	title := extractTitle(md)
	teaser := extractTeaser(md)
	if teaser == "" {
		teaser = clip(md, teaserFallbackLen)
	}
	if title == "" {
		title = clip(teaser, 80)
	}

	return domain.GeneratedDraft{
		Title:            title,
		Teaser:           teaser,
		FullContent:      md,
		DetectedLanguage: detectLanguage(md),
	}, nil
}

func extractTitle(md string) string {
	if m := titlePattern.FindStringSubmatch(md); len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractTeaser returns the first paragraph that is not a heading.
func extractTeaser(md string) string {
	var b strings.Builder
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed == "" {
			if b.Len() > 0 {
				break
			}
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(trimmed)
	}
	return b.String()
}

func clip(s string, limit int) string {
	fields := strings.Fields(s)
	joined := strings.Join(fields, " ")
	if len(joined) <= limit {
		return joined
	}
	cut := joined[:limit]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// detectLanguage is a coarse script-based guess used only as metadata on the
// draft. Latin text defaults to English.
func detectLanguage(text string) string {
	var han, kana, hangul, cyrillic, viet int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			kana++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case strings.ContainsRune("ăâđêôơưạảấầẩẫậắằẳẵặẹẻẽếềểễệỉịọỏốồổỗộớờởỡợụủứừửữựỳỵỷỹ", unicode.ToLower(r)):
			viet++
		}
	}

	switch {
	case kana > 0:
		return "ja"
	case hangul > 0:
		return "ko"
	case han > 0:
		return "zh"
	case cyrillic > 0:
		return "ru"
	case viet > 2:
		return "vi"
	default:
		return "en"
	}
}
