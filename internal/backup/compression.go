package backup

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies a compression algorithm
type CompressionType string

const (
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeZstd CompressionType = "zstd"
	CompressionTypeLZ4  CompressionType = "lz4"
	CompressionTypeNone CompressionType = "none"
)

// DefaultCompression is used when the configuration names no algorithm
const DefaultCompression = CompressionTypeGzip

// Codec is a streaming compression algorithm. Writers must be closed to
// flush trailing blocks; readers must be closed to release decoder state.
//
// A backup written with one codec can only be restored with the same codec;
// the algorithm is part of the backup's configuration contract, like the
// cipher password.
type Codec interface {
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
	Algorithm() CompressionType
}

// NewCodec returns the codec for the named algorithm. An empty name selects
// the default.
func NewCodec(algorithm CompressionType) (Codec, error) {
	switch algorithm {
	case "", DefaultCompression:
		return gzipCodec{}, nil
	case CompressionTypeZstd:
		return zstdCodec{}, nil
	case CompressionTypeLZ4:
		return lz4Codec{}, nil
	case CompressionTypeNone:
		return noneCodec{}, nil
	default:
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}

// SupportedAlgorithms lists the algorithms NewCodec accepts
func SupportedAlgorithms() []CompressionType {
	return []CompressionType{CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4, CompressionTypeNone}
}

type gzipCodec struct{}

func (gzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, NewCompressionError("failed to open gzip stream", err)
	}
	return zr, nil
}

func (gzipCodec) Algorithm() CompressionType { return CompressionTypeGzip }

type zstdCodec struct{}

func (zstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, NewCompressionError("failed to create zstd writer", err)
	}
	return zw, nil
}

func (zstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, NewCompressionError("failed to open zstd stream", err)
	}
	return zr.IOReadCloser(), nil
}

func (zstdCodec) Algorithm() CompressionType { return CompressionTypeZstd }

type lz4Codec struct{}

func (lz4Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func (lz4Codec) Algorithm() CompressionType { return CompressionTypeLZ4 }

type noneCodec struct{}

func (noneCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (noneCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (noneCodec) Algorithm() CompressionType { return CompressionTypeNone }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
