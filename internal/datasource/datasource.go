// Package datasource defines where scan input comes from.
package datasource

import (
	"context"
	"io"
)

// Source yields the decoded bytes of one input.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
