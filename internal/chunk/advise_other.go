//go:build !linux

package chunk

import "os"

func adviseSequential(*os.File) {}
