package frontmatter

import (
	"reflect"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKeys []string
		wantBody string
		wantErr  bool
	}{
		{
			name:     "header and body",
			raw:      "---\nid: task-001\ntitle: Set up CI\n---\n\n## Description\nPipeline work.",
			wantKeys: []string{"id", "title"},
			wantBody: "## Description\nPipeline work.",
		},
		{
			name:     "no header",
			raw:      "just a body\nwith two lines",
			wantKeys: nil,
			wantBody: "just a body\nwith two lines",
		},
		{
			name:     "header without trailing body",
			raw:      "---\nid: x\n---",
			wantKeys: []string{"id"},
			wantBody: "",
		},
		{
			name:     "unterminated fence is body",
			raw:      "---\nid: x\nno closing fence",
			wantKeys: nil,
			wantBody: "---\nid: x\nno closing fence",
		},
		{
			name:    "malformed yaml",
			raw:     "---\nid: [unclosed\n---\n\nbody",
			wantErr: true,
		},
		{
			name:     "body without blank line after fence",
			raw:      "---\nid: x\n---\nimmediate body",
			wantKeys: []string{"id"},
			wantBody: "immediate body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, body, err := Decode(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := fields.Keys(); !reflect.DeepEqual(got, tt.wantKeys) && !(len(got) == 0 && len(tt.wantKeys) == 0) {
				t.Errorf("Decode() keys = %v, want %v", got, tt.wantKeys)
			}
			if body != tt.wantBody {
				t.Errorf("Decode() body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestDecodeValueTypes(t *testing.T) {
	raw := "---\n" +
		"id: task-001\n" +
		"progress: 50\n" +
		"tags:\n  - ci\n  - infra\n" +
		"created: 2026-08-23\n" +
		"due: \"\"\n" +
		"dependencies: []\n" +
		"---\n\nbody"

	fields, _, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := fields.GetString("id"); got != "task-001" {
		t.Errorf("GetString(id) = %q, want %q", got, "task-001")
	}
	// Hand-edited files often leave dates unquoted.
	if got := fields.GetString("created"); got != "2026-08-23" {
		t.Errorf("GetString(created) = %q, want %q", got, "2026-08-23")
	}
	if got, ok := fields.GetInt("progress"); !ok || got != 50 {
		t.Errorf("GetInt(progress) = %d, %v, want 50, true", got, ok)
	}
	if got := fields.GetStrings("tags"); !reflect.DeepEqual(got, []string{"ci", "infra"}) {
		t.Errorf("GetStrings(tags) = %v, want [ci infra]", got)
	}
	if got := fields.GetString("due"); got != "" {
		t.Errorf("GetString(due) = %q, want empty", got)
	}
	if got := fields.GetStrings("dependencies"); len(got) != 0 {
		t.Errorf("GetStrings(dependencies) = %v, want empty", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fields := New()
	fields.Set("id", "task-002")
	fields.Set("title", "Ship the dashboard")
	fields.Set("project", "website-redesign")
	fields.Set("status", "in-progress")
	fields.Set("priority", "high")
	fields.Set("created", "2026-08-23")
	fields.Set("due", "")
	fields.Set("tags", []string{"web", "ui"})
	fields.Set("dependencies", []string{"task-001"})
	fields.Set("progress", 50)
	fields.Set("custom_field", "kept verbatim")
	body := "## Description\nDo the thing.\n\n## Subtasks\n- [x] First\n- [ ] Second\n"

	raw, err := Encode(fields, body)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, gotBody, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if gotBody != body {
		t.Errorf("round trip body = %q, want %q", gotBody, body)
	}
	if !reflect.DeepEqual(decoded.Keys(), fields.Keys()) {
		t.Errorf("round trip keys = %v, want %v", decoded.Keys(), fields.Keys())
	}
	for _, key := range fields.Keys() {
		if got, want := decoded.GetString(key), fields.GetString(key); got != want {
			t.Errorf("round trip field %q = %q, want %q", key, got, want)
		}
	}
	if got, _ := decoded.GetInt("progress"); got != 50 {
		t.Errorf("round trip progress = %d, want 50", got)
	}
	if got := decoded.GetStrings("tags"); !reflect.DeepEqual(got, []string{"web", "ui"}) {
		t.Errorf("round trip tags = %v, want [web ui]", got)
	}
}

func TestEncodeEmptyFields(t *testing.T) {
	raw, err := Encode(New(), "plain body")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if raw != "plain body" {
		t.Errorf("Encode() = %q, want bare body", raw)
	}
	if strings.Contains(raw, "---") {
		t.Errorf("Encode() added a fence to empty fields: %q", raw)
	}
}

func TestFieldsOrderAndDelete(t *testing.T) {
	f := New()
	f.Set("a", 1)
	f.Set("b", 2)
	f.Set("c", 3)
	f.Set("b", 20) // update keeps position

	if got := f.Keys(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("Keys() = %v, want [a b c]", got)
	}

	f.Delete("b")
	if got := f.Keys(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Keys() after delete = %v, want [a c]", got)
	}
	if f.Has("b") {
		t.Errorf("Has(b) = true after delete")
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
}
