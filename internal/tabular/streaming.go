package tabular

// streaming.go cleans export bytes on their way into the CSV parser without
// buffering the whole file:
//
//   - a UTF-8 byte order mark at the start is dropped
//   - invalid UTF-8 bytes become '?'
//   - reading past the size limit fails with ErrFileTooLarge
//
// Header cells must reach the schema registry byte-exact, so nothing else is
// touched. The Hebrew shapeshift headers are valid UTF-8 and pass unchanged.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sourceReader applies all transforms. maxBytes <= 0 disables the limit.
func sourceReader(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes > 0 {
		r = &limitedReader{r: r, remaining: maxBytes}
	}
	return newUTF8Sanitizer(skipBOM(r))
}

// skipBOM drops a leading UTF-8 BOM. Windows spreadsheet tools add one to
// "CSV UTF-8" exports, and it would otherwise stick to the first header.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?'. A multi-byte sequence
// split across two reads is carried over to the next read.
type utf8Sanitizer struct {
	r     io.Reader
	carry []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, carry: make([]byte, 0, utf8.UTFMax)}
}

// Read expects len(p) >= utf8.UTFMax, which bufio and encoding/csv guarantee.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := copy(p, s.carry)
	s.carry = s.carry[:0]

	m, err := s.r.Read(p[n:])
	n += m
	if n == 0 {
		return 0, err
	}

	end := n
	if err == nil {
		end -= partialTail(p[:n])
		s.carry = append(s.carry, p[end:n]...)
	}
	return sanitizeInPlace(p[:end]), err
}

// partialTail returns how many trailing bytes start a multi-byte sequence
// that is not complete yet.
func partialTail(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue
		}
		if b >= 0xC0 && seqLen(b) > i {
			return i
		}
		return 0
	}
	return 0
}

func seqLen(lead byte) int {
	switch {
	case lead < 0x80:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	default:
		return 4
	}
}

// sanitizeInPlace never grows data since each invalid byte maps to one '?'.
func sanitizeInPlace(data []byte) int {
	if utf8.Valid(data) {
		return len(data)
	}
	w := 0
	for r := 0; r < len(data); {
		ru, size := utf8.DecodeRune(data[r:])
		if ru == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// limitedReader fails instead of truncating when the input is too big.
type limitedReader struct {
	r         io.Reader
	remaining int64
	read      int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// Probe one byte so an input of exactly the limit still succeeds.
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, l.read)
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	l.read += int64(n)
	return n, err
}
