package stream

import (
	"context"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readBufSize = 4096

// bodyReader decodes a response body incrementally. The UTF-8 decoder keeps
// its state across reads, so a character split between two network chunks
// comes out whole in a single increment; invalid bytes become U+FFFD.
type bodyReader struct {
	ctx   context.Context
	body  io.ReadCloser
	src   io.Reader
	buf   []byte
	carry []byte
	err   error
}

func newBodyReader(ctx context.Context, body io.ReadCloser) *bodyReader {
	return &bodyReader{
		ctx:  ctx,
		body: body,
		src:  transform.NewReader(body, unicode.UTF8.NewDecoder()),
		buf:  make([]byte, readBufSize),
	}
}

// Next returns the next non-empty increment.
func (r *bodyReader) Next() (string, error) {
	for {
		if r.err != nil {
			if r.err == io.EOF && len(r.carry) > 0 {
				s := string(r.carry)
				r.carry = nil
				return s, nil
			}
			return "", r.err
		}

		n, err := r.src.Read(r.buf)
		if err != nil {
			if err == io.EOF {
				r.err = io.EOF
			} else {
				r.err = transportFailure(r.ctx, err)
			}
		}
		if n == 0 {
			continue
		}

		data := append(r.carry, r.buf[:n]...)
		complete, rest := splitComplete(data)
		r.carry = append([]byte(nil), rest...)
		if len(complete) > 0 {
			return string(complete), nil
		}
	}
}

func (r *bodyReader) Close() error {
	return r.body.Close()
}

// splitComplete separates a trailing incomplete UTF-8 sequence from b.
func splitComplete(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return b, nil
			}
			return b[:i], b[i:]
		}
	}
	return b, nil
}
