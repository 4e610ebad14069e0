package main

import (
	"testing"

	"moneynest/internal/models"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		kind    string
		id      int64
		want    models.Scope
		wantErr bool
	}{
		{"personal", 4, models.PersonalScope(4), false},
		{"family", 9, models.FamilyScope(9), false},
		{"family", 0, models.Scope{}, true},
		{"team", 1, models.Scope{}, true},
	}

	for _, tt := range tests {
		got, err := parseScope(tt.kind, tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseScope(%q, %d) error = %v, wantErr %v", tt.kind, tt.id, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseScope(%q, %d) = %+v, want %+v", tt.kind, tt.id, got, tt.want)
		}
	}
}
