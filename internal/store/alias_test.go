package store

import (
	"reflect"
	"testing"

	"github.com/nlplanner/nlplanner/internal/frontmatter"
)

func TestSyncFieldAliases(t *testing.T) {
	tests := []struct {
		name        string
		updates     map[string]any
		headerKeys  []string
		wantUpdates map[string]any
	}{
		{
			name:        "alias alone fills canonical",
			updates:     map[string]any{"project_id": "web"},
			headerKeys:  []string{"project"},
			wantUpdates: map[string]any{"project_id": "web", "project": "web"},
		},
		{
			name:        "canonical alone ignores absent alias",
			updates:     map[string]any{"project": "web"},
			headerKeys:  []string{"project"},
			wantUpdates: map[string]any{"project": "web"},
		},
		{
			name:        "canonical alone refreshes present alias",
			updates:     map[string]any{"project": "web"},
			headerKeys:  []string{"project", "project_id"},
			wantUpdates: map[string]any{"project": "web", "project_id": "web"},
		},
		{
			name:        "canonical wins over alias",
			updates:     map[string]any{"project": "new", "project_id": "old"},
			headerKeys:  []string{"project"},
			wantUpdates: map[string]any{"project": "new", "project_id": "new"},
		},
		{
			name:        "unrelated keys untouched",
			updates:     map[string]any{"title": "Renamed", "progress": 10},
			headerKeys:  []string{"project"},
			wantUpdates: map[string]any{"title": "Renamed", "progress": 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := frontmatter.New()
			for _, key := range tt.headerKeys {
				current.Set(key, "existing")
			}

			syncFieldAliases(tt.updates, current)

			if !reflect.DeepEqual(tt.updates, tt.wantUpdates) {
				t.Errorf("updates after sync = %v, want %v", tt.updates, tt.wantUpdates)
			}
		})
	}
}
