package api

import (
	"strconv"

	"github.com/pictor-board/pictor/internal/shared"
)

// Argument keys used by the jobs in this package's registry.
const (
	ArgUserName      = "new-user-name"
	ArgPassword      = "new-password"
	ArgEmail         = "new-email"
	ArgAccessRank    = "new-access-rank"
	ArgSourceTagName = "source-tag-name"
	ArgTargetTagName = "target-tag-name"
)

// ArgumentSet is an immutable mapping from argument key to value, built once
// by the caller of a job. Unknown keys are ignored by jobs that do not
// declare them.
type ArgumentSet struct {
	values map[string]string
}

// NewArgumentSet copies the given values into a fresh set.
func NewArgumentSet(values map[string]string) ArgumentSet {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return ArgumentSet{values: copied}
}

// Has reports whether the key is present with a non-empty value.
func (a ArgumentSet) Has(key string) bool {
	v, ok := a.values[key]
	return ok && v != ""
}

// String returns the raw value for key, empty when absent.
func (a ArgumentSet) String(key string) string {
	return a.values[key]
}

// Int parses the value for key as an integer.
func (a ArgumentSet) Int(key string) (int, error) {
	v, ok := a.values[key]
	if !ok {
		return 0, shared.NewError(shared.KindValidation, "Argument %q is missing", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, shared.NewError(shared.KindValidation, "Argument %q must be an integer", key)
	}
	return n, nil
}

// Bool parses the value for key as a boolean.
func (a ArgumentSet) Bool(key string) (bool, error) {
	v, ok := a.values[key]
	if !ok {
		return false, shared.NewError(shared.KindValidation, "Argument %q is missing", key)
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, shared.NewError(shared.KindValidation, "Argument %q must be a boolean", key)
	}
	return b, nil
}
