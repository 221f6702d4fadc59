package conversation

import (
	"testing"

	"vibelog/internal/domain"
)

func TestParse_CommandTypes(t *testing.T) {
	cases := []struct {
		input string
		want  domain.CommandType
	}{
		{"write a post about my morning routine", domain.CommandGenerate},
		{"create a vibelog about my trip to Lisbon", domain.CommandGenerate},
		{"compose something about remote work", domain.CommandGenerate},
		{"make it spicier", domain.CommandEdit},
		{"change the tone, more formal please", domain.CommandEdit},
		{"can you make it shorter", domain.CommandEdit},
		{"remove the second paragraph", domain.CommandEdit},
		{"publish it", domain.CommandPublish},
		{"ok, post it", domain.CommandPublish},
		{"tweet it", domain.CommandPublish},
		{"looks good", domain.CommandApprove},
		{"perfect, ship it", domain.CommandApprove},
		{"cancel", domain.CommandCancel},
		{"never mind", domain.CommandCancel},
		{"regenerate", domain.CommandRegenerate},
		{"let's do a new draft", domain.CommandRegenerate},
		{"what's the weather like", domain.CommandUnknown},
		{"hmm", domain.CommandUnknown},
	}

	for _, tc := range cases {
		got := Parse(tc.input)
		if got.Type != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got.Type, tc.want)
		}
		if got.Intent != tc.input {
			t.Errorf("Parse(%q) lost intent: got %q", tc.input, got.Intent)
		}
	}
}

// The category order is load-bearing: "start over" must resolve to
// regenerate even though "start" alone would match a generate pattern.
func TestParse_OrderingDestructiveFirst(t *testing.T) {
	cases := []struct {
		input string
		want  domain.CommandType
	}{
		{"start over", domain.CommandRegenerate},
		{"start over with something funnier", domain.CommandRegenerate},
		{"let's start from scratch", domain.CommandRegenerate},
		{"start a post about coffee", domain.CommandGenerate},
	}
	for _, tc := range cases {
		if got := Parse(tc.input); got.Type != tc.want {
			t.Errorf("Parse(%q) = %s, want %s", tc.input, got.Type, tc.want)
		}
	}
}

func TestParse_Confidence(t *testing.T) {
	if got := Parse("publish it"); got.Confidence != 0.9 {
		t.Fatalf("matched command confidence = %v, want 0.9", got.Confidence)
	}
	got := Parse("zzz unparseable gibberish")
	if got.Type != domain.CommandUnknown {
		t.Fatalf("expected unknown, got %s", got.Type)
	}
	if got.Confidence != 0.3 {
		t.Fatalf("unknown confidence = %v, want 0.3", got.Confidence)
	}
}

func TestParse_CaseInsensitive(t *testing.T) {
	if got := Parse("PUBLISH IT NOW"); got.Type != domain.CommandPublish {
		t.Fatalf("expected publish, got %s", got.Type)
	}
}
