// Package bufpool provides a pooled byte buffer for spider's hot write and
// parse paths, backed by bytebufferpool rather than a hand-rolled
// sync.Pool of size classes.
package bufpool

import "github.com/valyala/bytebufferpool"

// Buffer is a reusable, growable byte buffer. It is not safe for concurrent
// use; callers own it exclusively between Get and Put.
type Buffer = bytebufferpool.ByteBuffer

var pool bytebufferpool.Pool

// Get returns a Buffer with length zero, ready to be written into. It may
// carry leftover capacity from a prior caller.
func Get() *Buffer {
	return pool.Get()
}

// Put returns buf to the pool. buf must not be used again afterward.
func Put(buf *Buffer) {
	pool.Put(buf)
}
