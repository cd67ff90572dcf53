package encoding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/runx/internal/model"
	"github.com/slok/runx/internal/runner/encoding"
)

func TestNewDecoder(t *testing.T) {
	tests := map[string]struct {
		charset    string
		expCharset string
		expErr     bool
	}{
		"utf-8 should be accepted":                 {charset: "utf-8", expCharset: "utf-8"},
		"Names should be case insensitive":         {charset: "UTF-8", expCharset: "utf-8"},
		"Names should be trimmed":                  {charset: " cp437 ", expCharset: "cp437"},
		"cp437 should be accepted":                 {charset: "cp437", expCharset: "cp437"},
		"latin-1 should be accepted":               {charset: "latin-1", expCharset: "latin-1"},
		"utf-16le should be accepted":              {charset: "utf-16le", expCharset: "utf-16le"},
		"An unknown charset should be rejected":    {charset: "klingon", expErr: true},
		"An empty charset name should be rejected": {charset: "", expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dec, err := encoding.NewDecoder(test.charset)

			if test.expErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrNotValid)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expCharset, dec.Charset())
		})
	}
}

func TestDecoderDecode(t *testing.T) {
	tests := map[string]struct {
		charset string
		input   []byte
		expText string
	}{
		"Valid utf-8 should pass through unchanged": {
			charset: "utf-8",
			input:   []byte("héllo wörld"),
			expText: "héllo wörld",
		},

		"Invalid utf-8 bytes should degrade to the replacement character, never fail": {
			charset: "utf-8",
			input:   []byte{'o', 'k', 0xff, 0xfe, '!'},
			expText: "ok��!",
		},

		"An empty chunk should decode to the empty string": {
			charset: "utf-8",
			input:   nil,
			expText: "",
		},

		"cp437 box drawing bytes should decode to their unicode equivalents": {
			charset: "cp437",
			input:   []byte{0xB0, 0xB1, 0xB2},
			expText: "░▒▓",
		},

		"cp437 ASCII range should decode as plain text": {
			charset: "cp437",
			input:   []byte("dir C:"),
			expText: "dir C:",
		},

		"latin-1 accented bytes should decode": {
			charset: "latin-1",
			input:   []byte{0xE9, 0xE8},
			expText: "éè",
		},

		"utf-16le pairs should decode": {
			charset: "utf-16le",
			input:   []byte{0x68, 0x00, 0x69, 0x00},
			expText: "hi",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dec, err := encoding.NewDecoder(test.charset)
			require.NoError(t, err)

			got := dec.Decode(test.input)

			assert.Equal(t, test.expText, got)
		})
	}
}

func TestStreamDecoderDecode(t *testing.T) {
	tests := map[string]struct {
		charset string
		chunks  [][]byte
		expText string
	}{
		"A utf-8 sequence split across chunks should decode as one rune": {
			charset: "utf-8",
			chunks:  [][]byte{{'o', 'k', 0xE2, 0x82}, {0xAC, '!'}},
			expText: "ok€!",
		},

		"A utf-8 sequence split byte by byte should decode as one rune": {
			charset: "utf-8",
			chunks:  [][]byte{{0xE2}, {0x82}, {0xAC}},
			expText: "€",
		},

		"utf-16le pairs split across chunks should decode": {
			charset: "utf-16le",
			chunks:  [][]byte{{0x68}, {0x00, 0x69}, {0x00}},
			expText: "hi",
		},

		"An incomplete trailing sequence should degrade at end of stream without corrupting earlier output": {
			charset: "utf-8",
			chunks:  [][]byte{[]byte("ok"), {0xE2}},
			expText: "ok�",
		},

		"Empty chunks should decode to nothing and keep the carried state": {
			charset: "utf-8",
			chunks:  [][]byte{{0xE2, 0x82}, nil, {0xAC}},
			expText: "€",
		},

		"Byte-wise charsets should stream unaffected": {
			charset: "cp437",
			chunks:  [][]byte{{0xB0}, {0xB1}},
			expText: "░▒",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dec, err := encoding.NewDecoder(test.charset)
			require.NoError(t, err)

			s := dec.Stream()
			got := ""
			for _, chunk := range test.chunks {
				got += s.Decode(chunk, false)
			}
			got += s.Decode(nil, true)

			assert.Equal(t, test.expText, got)
		})
	}
}
