// Package errors defines the error handling used by the repository engine.
// Every failure that crosses the engine boundary is an *Error carrying a Kind.
package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
)

// Error is the type that implements the error interface.
// An Error value may leave some fields unset.
type Error struct {
	// Op is the operation being performed, such as "repo.Commit".
	Op Op
	// User is the account the operation was acting on or on behalf of.
	User UserName
	// Path is the file or directory being accessed.
	Path PathName
	// Kind is the class of error.
	Kind Kind
	// Err is the underlying error that triggered this one, if any.
	Err error
}

var _ error = (*Error)(nil)

// Op names an operation, usually the package-qualified method name.
type Op string

// UserName is the name of a repository account.
type UserName string

// PathName is a file or directory name inside the repository.
type PathName string

// Separator is the string used to separate nested errors.
var Separator = ":\n\t"

// Kind defines the kind of error this is.
type Kind uint8

// Kinds of errors.
const (
	Other            Kind = iota // Unclassified error. This value is not printed in the error message.
	Unauthenticated              // No current user.
	NotFound                     // User, file, version or mirror absent.
	PermissionDenied             // Missing or insufficient permission edge.
	InvalidArgument              // Bad permission kind, self-targeting grant, malformed selector.
	Exist                        // Item already exists.
	IOFailure                    // Underlying filesystem or database operation failed.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Unauthenticated:
		return "not authenticated"
	case NotFound:
		return "not found"
	case PermissionDenied:
		return "permission denied"
	case InvalidArgument:
		return "invalid argument"
	case Exist:
		return "already exists"
	case IOFailure:
		return "I/O failure"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//
//	errors.Op or string
//		The operation being performed.
//	errors.UserName
//		The account involved.
//	errors.PathName
//		The file or directory involved.
//	errors.Kind
//		The class of error.
//	error
//		The underlying error that triggered this one.
//
// If Kind is not specified or Other, we set it to the Kind of
// the underlying error.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("call to errors.E with no arguments")
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Op:
			e.Op = arg
		case string:
			e.Op = Op(arg)
		case UserName:
			e.User = arg
		case PathName:
			e.Path = arg
		case Kind:
			e.Kind = arg
		case *Error:
			// Make a copy
			c := *arg
			e.Err = &c
		case error:
			e.Err = arg
		default:
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}

	prev, ok := e.Err.(*Error)
	if !ok {
		if e.Kind == Other {
			e.Kind = KindOf(e.Err)
		}
		return e
	}

	// The previous error was also one of ours. Suppress duplications
	// so the message won't contain the same kind, path or user twice.
	if prev.Path == e.Path {
		prev.Path = ""
	}
	if prev.User == e.User {
		prev.User = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	// If this error has Kind unset or Other, pull up the inner one.
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) isZero() bool {
	return e.Op == "" && e.User == "" && e.Path == "" && e.Kind == Other && e.Err == nil
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.User != "" {
		pad(b, ": ")
		b.WriteString("user ")
		b.WriteString(string(e.User))
	}
	if e.Path != "" {
		pad(b, ": ")
		b.WriteString(string(e.Path))
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		// Indent on new line if we are cascading non-empty errors.
		if prevErr, ok := e.Err.(*Error); ok {
			if !prevErr.isZero() {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Unwrap returns the underlying error so the standard library
// errors.Is and errors.As can see through an *Error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

// errorString is a trivial implementation of error.
type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows clients to import only this
// package for all error handling. The %w verb is honoured.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// KindOf reports the Kind of the outermost *Error found in err's chain
// that has a Kind other than Other. It returns Other if there is none.
func KindOf(err error) Kind {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return Other
		}
		if e.Kind != Other {
			return e.Kind
		}
		err = e.Err
	}
	return Other
}

// Is reports whether err is an *Error of the given Kind.
// If err is nil then Is returns false.
func Is(kind Kind, err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
