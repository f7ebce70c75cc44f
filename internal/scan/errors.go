package scan

import "fmt"

// IOError reports that the input could not be opened or read. The scan
// produced no result.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("scan %s: io: %v", e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// SchemaError reports a missing header or an unknown field name. It is
// detected before any data record is examined.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("scan %s: schema: %v", e.Path, e.Err) }

func (e *SchemaError) Unwrap() error { return e.Err }
