package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestE_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "op and kind",
			err:  E(Op("repo.Commit"), Unauthenticated),
			want: "repo.Commit: not authenticated",
		},
		{
			name: "user path and underlying error",
			err:  E(Op("repo.RestoreFile"), UserName("alice"), PathName("notes.txt"), NotFound, Str("no such file")),
			want: "repo.RestoreFile: user alice: notes.txt: not found: no such file",
		},
		{
			name: "nested errors are indented",
			err:  E(Op("repo.Commit"), UserName("alice"), E(Op("repo.snapshot"), IOFailure, Str("disk full"))),
			want: "repo.Commit: user alice: I/O failure:\n\trepo.snapshot: disk full",
		},
		{
			name: "plain string is the op",
			err:  E("repo.Grant", InvalidArgument),
			want: "repo.Grant: invalid argument",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestE_PullsUpInnerKind(t *testing.T) {
	inner := E(Op("repo.revoke"), NotFound)
	outer := E(Op("repo.Revoke"), UserName("bob"), inner)

	if !Is(NotFound, outer) {
		t.Errorf("Is(NotFound) = false, want true")
	}
	e := outer.(*Error)
	if e.Kind != NotFound {
		t.Errorf("Kind = %v, want %v", e.Kind, NotFound)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: Other},
		{name: "plain error", err: Str("boom"), want: Other},
		{name: "direct kind", err: E(PermissionDenied), want: PermissionDenied},
		{name: "wrapped with fmt", err: fmt.Errorf("context: %w", E(Exist)), want: Exist},
		{name: "kind taken from wrapped error", err: E(Op("x"), fmt.Errorf("y: %w", E(IOFailure))), want: IOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := E(Op("repo.ReadFile"), NotFound, fs.ErrNotExist)
	if !stderrors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is(err, fs.ErrNotExist) = false, want true")
	}

	var e *Error
	if !stderrors.As(fmt.Errorf("outer: %w", err), &e) {
		t.Fatal("errors.As() = false, want true")
	}
	if e.Op != "repo.ReadFile" {
		t.Errorf("Op = %q, want %q", e.Op, "repo.ReadFile")
	}
}

func TestKind_String(t *testing.T) {
	for k := Other; k <= IOFailure; k++ {
		if k.String() == "unknown error kind" {
			t.Errorf("Kind(%d).String() not defined", k)
		}
	}
	if got := Kind(200).String(); got != "unknown error kind" {
		t.Errorf("Kind(200).String() = %q", got)
	}
}
