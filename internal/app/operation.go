package app

import "strings"

// Operation status values recorded in the history table.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks a CLI command that may mutate the repository.
// Operations are created in memory with ID=0. Only mutating commands
// persist them, which gives them an auto-increment ID from the database.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string
}

// NewOperation creates a new in-memory operation. Non-empty parameters are
// joined with spaces.
func NewOperation(name string, parameters ...string) *Operation {
	kept := make([]string, 0, len(parameters))
	for _, p := range parameters {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return &Operation{
		Name:       name,
		Parameters: strings.Join(kept, " "),
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Track marks the operation failed when err is non-nil and returns err.
func (op *Operation) Track(err error) error {
	if err != nil {
		op.Status = StatusError
	}
	return err
}
