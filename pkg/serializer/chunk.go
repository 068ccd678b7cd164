package serializer

import "github.com/ajitpratap0/objectdag/pkg/models"

// ChunkSize is the largest sequence stored inline. Longer sequences are
// split into DataChunk records of at most ChunkSize elements. The value is
// part of the record format and changes every id built from a chunked
// sequence.
const ChunkSize = 5000

// Chunk splits seq into consecutive chunks of at most size elements; the
// last chunk holds the remainder. The chunks share seq's backing array.
func Chunk(seq []any, size int) []*models.DataChunk {
	if size <= 0 {
		size = ChunkSize
	}
	chunks := make([]*models.DataChunk, 0, (len(seq)+size-1)/size)
	for start := 0; start < len(seq); start += size {
		end := min(start+size, len(seq))
		chunks = append(chunks, &models.DataChunk{Data: seq[start:end:end]})
	}
	return chunks
}
