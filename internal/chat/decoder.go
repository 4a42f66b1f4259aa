package chat

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StreamDecoder decodes UTF-8 text that arrives in arbitrary byte chunks.
// A multi-byte character split across two chunks is emitted once both halves
// have been seen; invalid bytes become U+FFFD.
type StreamDecoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, 4096),
	}
}

// Decode returns the text decodable so far. With stream set, an incomplete
// trailing sequence is kept for the next call; without it the decoder is
// flushed and reset.
func (d *StreamDecoder) Decode(p []byte, stream bool) string {
	src := append(d.pending, p...)
	d.pending = nil

	var out []byte
	atEOF := !stream
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out = append(out, d.dst[:nDst]...)
		src = src[nSrc:]

		switch {
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)
		}
		break
	}

	if atEOF {
		d.t.Reset()
	}
	return string(out)
}
