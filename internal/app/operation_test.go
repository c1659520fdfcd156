package app

import (
	"errors"
	"testing"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		parameters []string
		want       string
	}{
		{
			name:       "with parameters",
			operation:  "grant",
			parameters: []string{"bob", "write"},
			want:       "bob write",
		},
		{
			name:       "empty parameters dropped",
			operation:  "create",
			parameters: []string{"a.txt", ""},
			want:       "a.txt",
		},
		{
			name:      "no parameters",
			operation: "commit",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters...)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.Parameters != tt.want {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.want)
			}
			if op.Status != StatusSuccess {
				t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
			}
			if op.ID != 0 {
				t.Errorf("ID = %d, want 0", op.ID)
			}
		})
	}
}

func TestOperation_Persisted(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want bool
	}{
		{name: "not persisted when ID is 0", id: 0, want: false},
		{name: "persisted when ID is positive", id: 1, want: true},
		{name: "persisted when ID is large", id: 99999, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &Operation{ID: tt.id}
			if got := op.Persisted(); got != tt.want {
				t.Errorf("Persisted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperation_Track(t *testing.T) {
	op := NewOperation("commit")

	if err := op.Track(nil); err != nil {
		t.Fatalf("Track(nil) = %v, want nil", err)
	}
	if op.Status != StatusSuccess {
		t.Errorf("Status after nil = %q, want %q", op.Status, StatusSuccess)
	}

	boom := errors.New("boom")
	if err := op.Track(boom); err != boom {
		t.Fatalf("Track(err) = %v, want %v", err, boom)
	}
	if op.Status != StatusError {
		t.Errorf("Status after error = %q, want %q", op.Status, StatusError)
	}

	op.Track(nil)
	if op.Status != StatusError {
		t.Errorf("Status should stay %q after a later success, got %q", StatusError, op.Status)
	}
}
