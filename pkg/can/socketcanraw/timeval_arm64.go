//go:build arm64

package socketcanraw

import "golang.org/x/sys/unix"

var defaultTimeVal = unix.Timeval{
	Sec:  int64(0),
	Usec: int64(100_000),
}
