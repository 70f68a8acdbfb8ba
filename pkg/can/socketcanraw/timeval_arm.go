//go:build arm

package socketcanraw

import "golang.org/x/sys/unix"

var defaultTimeVal = unix.Timeval{
	Sec:  int32(0),
	Usec: int32(100_000),
}
