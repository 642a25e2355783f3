package store

import (
	"reflect"
	"strings"
	"testing"
)

const sampleBody = "## Description\nIntro text.\n\n## Subtasks\n- [ ] a\n\n## Attachments\n- [f](../attachments/f.png)\n\n## Agent Tips\n- keep it simple"

func TestSectionContent(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		want   string
		found  bool
	}{
		{"middle section", sectionSubtasks, "\n- [ ] a\n", true},
		{"final section runs to the end", sectionAgentTips, "\n- keep it simple", true},
		{"missing section", "## Goals", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := sectionContent(sampleBody, tt.marker)
			if found != tt.found {
				t.Fatalf("sectionContent() found = %v, want %v", found, tt.found)
			}
			if got != tt.want {
				t.Errorf("sectionContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpliceSection(t *testing.T) {
	t.Run("replaces existing content", func(t *testing.T) {
		got := spliceSection(sampleBody, sectionSubtasks, "- [x] a", "")
		if !strings.Contains(got, "## Subtasks\n- [x] a\n## Attachments") {
			t.Errorf("section not replaced in place:\n%s", got)
		}
		if !strings.Contains(got, "Intro text.") || !strings.Contains(got, "keep it simple") {
			t.Errorf("surrounding sections damaged:\n%s", got)
		}
	})

	t.Run("inserts before the named section", func(t *testing.T) {
		body := "## Description\nX\n\n## Attachments\n"
		got := spliceSection(body, sectionSubtasks, "- [ ] a", sectionAttachments)
		subIdx := strings.Index(got, sectionSubtasks)
		attIdx := strings.Index(got, sectionAttachments)
		if subIdx < 0 || subIdx > attIdx {
			t.Errorf("section not inserted before attachments:\n%s", got)
		}
	})

	t.Run("appends when nothing to insert before", func(t *testing.T) {
		body := "## Description\nX\n"
		got := spliceSection(body, sectionAgentTips, "- tip", sectionAttachments)
		if !strings.HasSuffix(got, "## Description\nX\n\n## Agent Tips\n- tip") {
			t.Errorf("section not appended:\n%s", got)
		}
	})
}

func TestBulletItems(t *testing.T) {
	section := "\nsome prose\n- first\n  - indented still counts\n- second\nnot a bullet\n"
	want := []string{"first", "indented still counts", "second"}
	if got := bulletItems(section); !reflect.DeepEqual(got, want) {
		t.Errorf("bulletItems() = %v, want %v", got, want)
	}
}

func TestRenderBullets(t *testing.T) {
	if got := renderBullets(nil); got != "" {
		t.Errorf("renderBullets(nil) = %q, want empty", got)
	}
	if got := renderBullets([]string{"a", "b"}); got != "- a\n- b" {
		t.Errorf("renderBullets() = %q, want %q", got, "- a\n- b")
	}
}

func TestFirstImage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no image", "## Description\nplain text with a [link](https://example.com)", ""},
		{"markdown image", "see ![mockup](../attachments/mockup.png) above", "mockup.png"},
		{"case insensitive extension", "[shot](files/SCREEN.JPG)", "SCREEN.JPG"},
		{"path stripped to basename", "[deep](../../outside/secret.gif)", "secret.gif"},
		{"first of several wins", "[a](one.webp) and [b](two.png)", "one.webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstImage(tt.body); got != tt.want {
				t.Errorf("firstImage() = %v, want %v", got, tt.want)
			}
		})
	}
}
