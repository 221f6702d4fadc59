package generator

import (
	"strings"
	"testing"
)

func TestParseDraft(t *testing.T) {
	raw := `# Monday, Coffee, and a Broken Build

I spent the whole morning chasing a bug that turned out to be a typo.
Here's what it taught me about reading error messages.

## The setup

It started innocently enough...`

	draft, err := parseDraft(raw)
	if err != nil {
		t.Fatalf("parseDraft() error = %v", err)
	}
	if draft.Title != "Monday, Coffee, and a Broken Build" {
		t.Fatalf("Title = %q", draft.Title)
	}
	wantTeaser := "I spent the whole morning chasing a bug that turned out to be a typo. Here's what it taught me about reading error messages."
	if draft.Teaser != wantTeaser {
		t.Fatalf("Teaser = %q, want %q", draft.Teaser, wantTeaser)
	}
	if !strings.Contains(draft.FullContent, "## The setup") {
		t.Fatalf("FullContent lost the body: %q", draft.FullContent)
	}
	if draft.DetectedLanguage != "en" {
		t.Fatalf("DetectedLanguage = %q, want en", draft.DetectedLanguage)
	}
}

func TestParseDraftWithoutHeading(t *testing.T) {
	raw := "Just a plain paragraph the model returned without any markdown structure at all."

	draft, err := parseDraft(raw)
	if err != nil {
		t.Fatalf("parseDraft() error = %v", err)
	}
	if draft.Title == "" {
		t.Fatal("Title empty, want fallback from the body")
	}
	if draft.Teaser == "" {
		t.Fatal("Teaser empty, want fallback from the body")
	}
	if draft.FullContent != raw {
		t.Fatalf("FullContent = %q, want the raw text preserved", draft.FullContent)
	}
}

func TestParseDraftEmpty(t *testing.T) {
	if _, err := parseDraft("   \n  "); err == nil {
		t.Fatal("parseDraft() = nil, want error for empty output")
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"A quiet morning with coffee and code.", "en"},
		{"今天早上我写了一篇关于咖啡的文章。", "zh"},
		{"今日はコーヒーについて書きました。", "ja"},
		{"오늘 아침 커피에 대해 썼어요.", "ko"},
		{"Сегодня утром я писал о кофе.", "ru"},
		{"Sáng nay tôi viết về cà phê và những điều nhỏ nhặt.", "vi"},
	}
	for _, tt := range tests {
		if got := detectLanguage(tt.text); got != tt.want {
			t.Errorf("detectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestClip(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := clip(long, 50)
	if len(got) > 55 {
		t.Fatalf("clip() returned %d chars, want about 50", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("clip() = %q, want ellipsis suffix", got)
	}

	if got := clip("short", 50); got != "short" {
		t.Fatalf("clip() = %q, want unmodified short input", got)
	}
}
