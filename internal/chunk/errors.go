package chunk

import "errors"

// ErrMmapUnsupported is returned by Map when the platform or file type cannot
// be memory-mapped.
var ErrMmapUnsupported = errors.New("mmap not supported")
