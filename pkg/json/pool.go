// Package json provides the canonical JSON codec for objectdag records.
//
// Canonical form is what content ids are computed over: object keys in
// insertion order, no insignificant whitespace, standard string escaping
// without HTML escaping. The encoder accepts only the closed set of
// values the serializer produces (ordered maps, []any and JSON scalars)
// and rejects anything else, including NaN and infinities.
package json

import (
	"bytes"
	"sync"
)

// bufferPool holds encode buffers between calls
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// maxPooledBuffer keeps one huge record from pinning memory in the pool
const maxPooledBuffer = 1024 * 1024

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}
