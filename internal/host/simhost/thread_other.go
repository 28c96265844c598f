//go:build !linux

package simhost

import (
	"bytes"
	"runtime"
	"strconv"
)

// currentThreadID returns the goroutine id. Run locks its goroutine to one
// OS thread and nothing else runs there, so the goroutine stands in for it.
func currentThreadID() int64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}
