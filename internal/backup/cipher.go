package backup

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	cipherScheduleSize = 64
	cipherIterations   = 4096
)

// StreamCipher is the symmetric XOR transform applied to backup payloads.
// Each payload byte is combined with a key-schedule byte selected by the
// byte's absolute offset in the stream, so the transform is its own inverse
// when replayed over the identical byte sequence.
//
// The offset advances monotonically across chunks and is never reset; a
// cipher instance therefore serves exactly one stream. Create a fresh
// instance per backup or restore.
type StreamCipher struct {
	schedule []byte
	offset   int64
}

// NewStreamCipher derives a key schedule from the password. An empty
// password returns nil, which every consumer treats as pass-through.
func NewStreamCipher(password string, salt []byte) *StreamCipher {
	if password == "" {
		return nil
	}
	return &StreamCipher{
		schedule: pbkdf2.Key([]byte(password), salt, cipherIterations, cipherScheduleSize, sha256.New),
	}
}

// XOR transforms the chunk in place and advances the stream offset
func (c *StreamCipher) XOR(p []byte) {
	for i := range p {
		p[i] ^= c.schedule[c.offset%int64(len(c.schedule))]
		c.offset++
	}
}

// Offset returns the number of bytes transformed so far
func (c *StreamCipher) Offset() int64 {
	return c.offset
}

// Writer returns w wrapped so that written bytes are ciphered first. A nil
// cipher returns w unchanged.
func (c *StreamCipher) Writer(w io.Writer) io.Writer {
	if c == nil {
		return w
	}
	return &cipherWriter{cipher: c, dst: w}
}

// Reader returns r wrapped so that read bytes are deciphered. A nil cipher
// returns r unchanged.
func (c *StreamCipher) Reader(r io.Reader) io.Reader {
	if c == nil {
		return r
	}
	return &cipherReader{cipher: c, src: r}
}

type cipherWriter struct {
	cipher *StreamCipher
	dst    io.Writer
	buf    []byte
}

func (w *cipherWriter) Write(p []byte) (int, error) {
	// Transform a copy; io.Writer contracts forbid mutating the caller's slice.
	if cap(w.buf) < len(p) {
		w.buf = make([]byte, len(p))
	}
	buf := w.buf[:len(p)]
	copy(buf, p)
	w.cipher.XOR(buf)

	n, err := w.dst.Write(buf)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

type cipherReader struct {
	cipher *StreamCipher
	src    io.Reader
}

func (r *cipherReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.cipher.XOR(p[:n])
	}
	return n, err
}
