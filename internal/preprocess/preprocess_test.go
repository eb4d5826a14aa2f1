package preprocess

import (
	"reflect"
	"testing"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"html entities", "ben &amp; jerry &lt;3", "ben & jerry <3"},
		{"strips urls", "see https://example.com/a?b=c for details", "see for details"},
		{"collapses spaces", "too   many\t\tspaces", "too many spaces"},
		{"caps blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"trims ends", "  padded  ", "padded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanTextIdempotent(t *testing.T) {
	in := "check &amp; https://reddit.com/r/golang   out\n\n\n\nmore"
	once := CleanText(in)
	if twice := CleanText(once); twice != once {
		t.Fatalf("second pass changed output: %q vs %q", once, twice)
	}
}

func TestIsDeletedContent(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"[deleted]", true},
		{"[removed]", true},
		{"[Deleted]", true},
		{" [deleted by user] ", true},
		{"deleted my old post", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsDeletedContent(tc.in); got != tc.want {
			t.Errorf("IsDeletedContent(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAuthor(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"gopher", "gopher", true},
		{"  gopher  ", "gopher", true},
		{"[deleted]", "", false},
		{"[removed]", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeAuthor(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("NormalizeAuthor(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestExtractMentions(t *testing.T) {
	text := "thanks /u/Gopher and /u/gopher, crosspost to /r/golang and /R/Golang"
	got := ExtractMentions(text)
	want := []string{"/u/gopher", "/r/golang"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractMentions = %v, want %v", got, want)
	}
}

func TestGetTextStats(t *testing.T) {
	text := "First sentence. Second one!\n\nNew paragraph here."
	stats := GetTextStats(text)
	if stats.Sentences != 3 {
		t.Errorf("Sentences = %d, want 3", stats.Sentences)
	}
	if stats.Paragraphs != 2 {
		t.Errorf("Paragraphs = %d, want 2", stats.Paragraphs)
	}
	if stats.Words != 7 {
		t.Errorf("Words = %d, want 7", stats.Words)
	}
	if got := GetTextStats("link https://example.org only").URLs; got != 1 {
		t.Errorf("URLs = %d, want 1", got)
	}
	if stats.Chars == 0 {
		t.Errorf("Chars should be non-zero: %+v", stats)
	}
}
