package publish

import (
	"reflect"
	"strings"
	"testing"
)

func TestOptimizeTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		max  int
		want []string
	}{
		{
			name: "lowercases and strips punctuation",
			tags: []string{"GoLang", "Web-Dev", "C++"},
			max:  5,
			want: []string{"golang", "webdev", "c"},
		},
		{
			name: "dedupes preserving first occurrence",
			tags: []string{"go", "GO", "Go!", "rust"},
			max:  5,
			want: []string{"go", "rust"},
		},
		{
			name: "caps at max",
			tags: []string{"one", "two", "three", "four", "five", "six", "seven"},
			max:  4,
			want: []string{"one", "two", "three", "four"},
		},
		{
			name: "drops empties",
			tags: []string{"", "  ", "---", "ok"},
			max:  5,
			want: []string{"ok"},
		},
		{
			name: "nil for no usable tags",
			tags: []string{"", "!!!"},
			max:  5,
			want: nil,
		},
		{
			name: "zero max",
			tags: []string{"go"},
			max:  0,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OptimizeTags(tt.tags, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("OptimizeTags(%v, %d) = %v, want %v", tt.tags, tt.max, got, tt.want)
			}
		})
	}
}

func TestOptimizeTagsIdempotent(t *testing.T) {
	once := OptimizeTags([]string{"GoLang", "Dev-Ops", "golang", "K8s"}, 3)
	twice := OptimizeTags(once, 3)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed the result: %v vs %v", once, twice)
	}
}

func TestOptimizeMedia(t *testing.T) {
	in := []MediaAttachment{
		{URL: "https://example.com/a.png", Kind: MediaImage},
		{URL: "https://example.com/b.png", AltText: "a chart", Kind: MediaImage},
	}
	out := OptimizeMedia(in)

	if in[0].AltText != "" {
		t.Error("input slice was mutated")
	}
	if out[0].AltText != "Image" {
		t.Errorf("missing alt text not defaulted: %q", out[0].AltText)
	}
	if out[1].AltText != "a chart" {
		t.Errorf("existing alt text overwritten: %q", out[1].AltText)
	}
	if OptimizeMedia(nil) != nil {
		t.Error("expected nil for empty media")
	}
}

func TestContentTags(t *testing.T) {
	content := &ContentInput{Metadata: map[string]string{"tags": " go, testing ,, cli"}}
	got := ContentTags(content)
	want := []string{"go", "testing", "cli"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ContentTags = %v, want %v", got, want)
	}
	if got := ContentTags(&ContentInput{}); got != nil {
		t.Errorf("expected nil without metadata, got %v", got)
	}
}

func TestSocialTeaserPrefersExcerpt(t *testing.T) {
	content := &ContentInput{
		Excerpt: "The short version.",
		Body:    "# Heading\n\nA much longer body that should not be used here.",
	}
	if got := SocialTeaser(content); got != "The short version." {
		t.Errorf("SocialTeaser = %q", got)
	}
}

func TestSocialTeaserFallsBackToBody(t *testing.T) {
	content := &ContentInput{
		Body: "# Title\n\nThis first real paragraph is long enough to serve as the teaser text for social posts.",
	}
	got := SocialTeaser(content)
	if !strings.HasPrefix(got, "This first real paragraph") {
		t.Errorf("SocialTeaser = %q", got)
	}
	if strings.Contains(got, "#") {
		t.Errorf("markdown survived: %q", got)
	}
	if len(got) > TeaserLimit {
		t.Errorf("teaser exceeds %d chars: %d", TeaserLimit, len(got))
	}
}

func TestCredentialsStringRedacts(t *testing.T) {
	creds := Credentials{
		Kind:   CredAPIKey,
		Values: map[string]string{"api_key": "super-secret-value"},
	}
	s := creds.String()
	if strings.Contains(s, "super-secret-value") {
		t.Fatalf("secret leaked through String(): %q", s)
	}
	if !strings.Contains(s, string(CredAPIKey)) {
		t.Errorf("kind missing from %q", s)
	}
}

func TestValidationResultMerge(t *testing.T) {
	result := OKResult()
	result.AddWarning("minor issue")

	var other ValidationResult
	other.Valid = true
	other.AddError("blocking issue")

	result.Merge(other)
	if result.Valid {
		t.Error("merge of an invalid result should invalidate")
	}
	if len(result.Errors) != 1 || len(result.Warnings) != 1 {
		t.Errorf("unexpected merge output: %+v", result)
	}
}

func TestParsePlatform(t *testing.T) {
	for _, platform := range Platforms() {
		got, err := ParsePlatform(string(platform))
		if err != nil || got != platform {
			t.Errorf("ParsePlatform(%q) = %v, %v", platform, got, err)
		}
	}
	if _, err := ParsePlatform("myspace"); err == nil {
		t.Error("expected error for unknown platform")
	}
}
