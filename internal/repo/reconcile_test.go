package repo

import (
	"reflect"
	"testing"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		target     []string
		source     []string
		wantDelete []string
		wantCopy   []string
	}{
		{
			name:       "empty both",
			wantDelete: []string{},
			wantCopy:   []string{},
		},
		{
			name:       "empty target copies everything",
			source:     []string{"b.txt", "a.txt"},
			wantDelete: []string{},
			wantCopy:   []string{"a.txt", "b.txt"},
		},
		{
			name:       "empty source deletes everything",
			target:     []string{"a.txt", "b.txt"},
			wantDelete: []string{"a.txt", "b.txt"},
			wantCopy:   []string{},
		},
		{
			name:       "overlap overwrites shared names",
			target:     []string{"a.txt", "old.txt"},
			source:     []string{"a.txt", "new.txt"},
			wantDelete: []string{"old.txt"},
			wantCopy:   []string{"a.txt", "new.txt"},
		},
		{
			name:       "duplicates collapse",
			target:     []string{"a.txt", "a.txt"},
			source:     []string{"b.txt", "b.txt"},
			wantDelete: []string{"a.txt"},
			wantCopy:   []string{"b.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.target, tt.source)
			if !reflect.DeepEqual(got.Delete, tt.wantDelete) {
				t.Errorf("Delete = %v, want %v", got.Delete, tt.wantDelete)
			}
			if !reflect.DeepEqual(got.Copy, tt.wantCopy) {
				t.Errorf("Copy = %v, want %v", got.Copy, tt.wantCopy)
			}
		})
	}
}

func TestReconcile_ResultEqualsSource(t *testing.T) {
	target := []string{"a", "b", "c"}
	source := []string{"b", "d"}
	plan := Reconcile(target, source)

	result := map[string]bool{}
	for _, n := range target {
		result[n] = true
	}
	for _, n := range plan.Delete {
		delete(result, n)
	}
	for _, n := range plan.Copy {
		result[n] = true
	}

	if len(result) != len(source) {
		t.Fatalf("result = %v, want %v", result, source)
	}
	for _, n := range source {
		if !result[n] {
			t.Errorf("result is missing %q", n)
		}
	}
}

func TestPlan_Empty(t *testing.T) {
	if !(Plan{}).Empty() {
		t.Error("zero Plan should be empty")
	}
	if Reconcile(nil, []string{"a"}).Empty() {
		t.Error("plan with a copy should not be empty")
	}
}
