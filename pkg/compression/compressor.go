// Package compression compresses stored record payloads.
//
// Blob transports (disk, s3, gcs) run every record through a Compressor
// before writing it and append the compressor's Extension to the object
// name, so a store can be read back without knowing its configuration.
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Better,
//	})
//	compressed, err := comp.Compress(record.JSON)
//
// Speed (fastest to slowest): LZ4 > Snappy/S2 > Zstd > Gzip.
// Ratio (best to worst): Zstd > Gzip > Snappy/S2 > LZ4.
package compression

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None stores payloads as is
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy block compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 block compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

// MaxDecompressedSize bounds the output of Decompress for the streaming
// formats.
const MaxDecompressedSize = 512 << 20

// Compressor compresses and decompresses whole payloads. Implementations
// are safe for concurrent use.
type Compressor interface {
	// Compress returns the compressed form of data
	Compress(data []byte) ([]byte, error)
	// Decompress returns the original form of data
	Decompress(data []byte) ([]byte, error)
	// Algorithm returns the compression algorithm used
	Algorithm() Algorithm
	// Extension returns the file name suffix for compressed payloads,
	// including the dot, or "" for None
	Extension() string
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm
	Level     Level
}

// FromConfig converts the compression section of a transport configuration.
func FromConfig(cfg config.CompressionConfig) *Config {
	algorithm := Algorithm(strings.ToLower(cfg.Algorithm))
	if algorithm == "" {
		algorithm = None
	}
	level := Level(cfg.Level)
	if level == 0 {
		level = Default
	}
	return &Config{Algorithm: algorithm, Level: level}
}

// NewCompressor creates a compressor. A nil config means no compression.
func NewCompressor(cfg *Config) (Compressor, error) {
	if cfg == nil {
		return noneCompressor{}, nil
	}

	switch cfg.Algorithm {
	case None, "":
		return noneCompressor{}, nil
	case Gzip:
		return newGzipCompressor(cfg.Level)
	case Snappy:
		return blockCompressor{algorithm: Snappy, encode: snappy.Encode, decode: snappy.Decode}, nil
	case S2:
		return blockCompressor{algorithm: S2, encode: s2.Encode, decode: s2.Decode}, nil
	case LZ4:
		return &lz4Compressor{level: mapLZ4Level(cfg.Level)}, nil
	case Zstd:
		return newZstdCompressor(cfg.Level)
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unsupported compression algorithm").
			WithDetail("algorithm", string(cfg.Algorithm))
	}
}

// ForExtension returns a compressor able to read payloads stored with the
// given extension, or false if the extension is unknown.
func ForExtension(ext string) (Compressor, bool) {
	for _, a := range Algorithms {
		c, err := NewCompressor(&Config{Algorithm: a, Level: Default})
		if err == nil && c.Extension() == ext {
			return c, true
		}
	}
	return nil, false
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 4<<20 {
		return
	}
	bufferPool.Put(buf)
}

func detach(buf *bytes.Buffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

func readLimited(dst *bytes.Buffer, r io.Reader) error {
	n, err := io.Copy(dst, io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return err
	}
	if n > MaxDecompressedSize {
		return errors.New(errors.ErrorTypeData, "decompressed payload too large").
			WithDetail("limit", MaxDecompressedSize)
	}
	return nil
}

func corrupt(err error, algorithm Algorithm) error {
	return errors.Wrap(err, errors.ErrorTypeData, "failed to decompress payload").
		WithDetail("algorithm", string(algorithm))
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm { return None }
func (noneCompressor) Extension() string { return "" }

// blockCompressor covers the snappy-style block formats.
type blockCompressor struct {
	algorithm Algorithm
	encode    func(dst, src []byte) []byte
	decode    func(dst, src []byte) ([]byte, error)
}

func (b blockCompressor) Compress(data []byte) ([]byte, error) {
	return b.encode(nil, data), nil
}

func (b blockCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := b.decode(nil, data)
	if err != nil {
		return nil, corrupt(err, b.algorithm)
	}
	return out, nil
}

func (b blockCompressor) Algorithm() Algorithm { return b.algorithm }
func (b blockCompressor) Extension() string { return "." + string(b.algorithm) }

type gzipCompressor struct {
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(level Level) (*gzipCompressor, error) {
	gzLevel := mapGzipLevel(level)
	if _, err := gzip.NewWriterLevel(io.Discard, gzLevel); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gzip level")
	}

	gc := &gzipCompressor{}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzLevel)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc, nil
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return detach(buf), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, corrupt(err, Gzip)
	}

	buf := getBuffer()
	defer putBuffer(buf)
	if err := readLimited(buf, r); err != nil {
		return nil, corrupt(err, Gzip)
	}
	return detach(buf), nil
}

func (gc *gzipCompressor) Algorithm() Algorithm { return Gzip }
func (gc *gzipCompressor) Extension() string { return ".gz" }

type lz4Compressor struct {
	level lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(lc.level)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return detach(buf), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := readLimited(buf, lz4.NewReader(bytes.NewReader(data))); err != nil {
		return nil, corrupt(err, LZ4)
	}
	return detach(buf), nil
}

func (lc *lz4Compressor) Algorithm() Algorithm { return LZ4 }
func (lc *lz4Compressor) Extension() string { return ".lz4" }

type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor(level Level) (*zstdCompressor, error) {
	// EncodeAll and DecodeAll are safe for concurrent use on one instance.
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(mapZstdLevel(level)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecompressedSize))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create zstd decoder")
	}
	return &zstdCompressor{encoder: enc, decoder: dec}, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	// EncodeAll emits no frame for empty input.
	if len(data) == 0 {
		return []byte{}, nil
	}
	out, err := zc.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, corrupt(err, Zstd)
	}
	return out, nil
}

func (zc *zstdCompressor) Algorithm() Algorithm { return Zstd }
func (zc *zstdCompressor) Extension() string { return ".zst" }

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
