package marshal

import "fmt"

// SchemaError reports a malformed schema document: a node that is
// neither an object nor a boolean, or an unknown type name. It is fatal
// to the current call and never retried.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid schema: %s", e.Reason)
}

func schemaErrorf(format string, args ...interface{}) error {
	return &SchemaError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a value that does not conform to its schema.
// It carries the path of the first failure. For anyOf and type-list
// expansion the first candidate's failure is reported even though later
// candidates were also tried.
type ValidationError struct {
	Path   Path
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at %s: %s", e.Path.String(), e.Reason)
}

func failf(path Path, format string, args ...interface{}) error {
	return &ValidationError{Path: path.Clone(), Reason: fmt.Sprintf(format, args...)}
}

// MergeError reports a special slot value the merger does not
// recognize, or a descriptor/specials mismatch. It signals that the
// extraction and merge sides disagree about the schema.
type MergeError struct {
	Reason string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed: %s", e.Reason)
}

func mergeErrorf(format string, args ...interface{}) error {
	return &MergeError{Reason: fmt.Sprintf(format, args...)}
}
