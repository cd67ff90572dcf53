// Package encoding turns child process output bytes into text. Decoding is
// best effort on purpose: arbitrary programs write arbitrary bytes and a bad
// sequence must never abort output draining.
package encoding

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/slok/runx/internal/model"
)

// charsets maps the charset names we accept to their x/text encodings.
var charsets = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
	"ascii":        unicode.UTF8,
	"us-ascii":     unicode.UTF8,
	"cp437":        charmap.CodePage437,
	"ibm437":       charmap.CodePage437,
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// Decoder decodes byte chunks with a fixed charset.
type Decoder struct {
	name string
	enc  encoding.Encoding
}

// NewDecoder returns a decoder for the given charset name.
func NewDecoder(charset string) (*Decoder, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	enc, ok := charsets[name]
	if !ok {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, model.ErrNotValid)
	}

	return &Decoder{name: name, enc: enc}, nil
}

// Charset returns the normalized charset name.
func (d *Decoder) Charset() string { return d.name }

// Decode converts a byte chunk to text. It never fails: undecodable sequences
// degrade to the replacement character, and if even that is not possible the
// offending bytes are dropped.
func (d *Decoder) Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	out, err := d.enc.NewDecoder().Bytes(b)
	if err == nil {
		return string(out)
	}

	// The partial result up to the failure is still usable, keep the valid
	// part and drop whatever could not be represented.
	return strings.ToValidUTF8(string(out), "")
}

const streamDstSize = 4 * 1024

// Stream returns a stateful decoder for chunked input. A multibyte sequence
// whose bytes land in different chunks is held back and completed on the next
// call instead of degrading into replacement characters.
func (d *Decoder) Stream() *StreamDecoder {
	return &StreamDecoder{
		t:   d.enc.NewDecoder(),
		dst: make([]byte, streamDstSize),
	}
}

// StreamDecoder decodes one byte stream chunk by chunk. Not safe for
// concurrent use, and a stream must not continue after an atEOF call.
type StreamDecoder struct {
	t       transform.Transformer
	dst     []byte
	pending []byte
}

// Decode converts the next chunk of the stream to text. Incomplete trailing
// sequences are carried over to the following call; atEOF flushes them with
// the same never-fail degradation as Decoder.Decode.
func (s *StreamDecoder) Decode(b []byte, atEOF bool) string {
	src := b
	if len(s.pending) > 0 {
		src = append(s.pending, b...)
		s.pending = nil
	}
	if len(src) == 0 && !atEOF {
		return ""
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := s.t.Transform(s.dst, src, atEOF)
		out.Write(s.dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String()

		case errors.Is(err, transform.ErrShortDst):
			// Output buffer drained into out, keep transforming.

		case errors.Is(err, transform.ErrShortSrc):
			if atEOF {
				return out.String()
			}
			// Sequence cut mid-way, finish it with the next chunk. Copied
			// because src aliases the caller's reusable read buffer.
			s.pending = append([]byte(nil), src...)
			return out.String()

		default:
			// The x/text decoders replace instead of failing, but if one ever
			// does fail, drop the offending byte and keep going.
			if len(src) == 0 {
				return out.String()
			}
			src = src[1:]
		}
	}
}
