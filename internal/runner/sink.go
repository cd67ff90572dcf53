package runner

import (
	"fmt"
	"io"
	"strings"
)

// sink is the destination of decoded output chunks. Sinks are owned by the
// supervisor: nothing else writes to them during a run.
type sink interface {
	WriteChunk(chunk string)
	Output() string
}

// bufferSink accumulates decoded chunks in memory, in arrival order.
type bufferSink struct {
	b strings.Builder
}

func newBufferSink() *bufferSink { return &bufferSink{} }

func (s *bufferSink) WriteChunk(chunk string) { s.b.WriteString(chunk) }

func (s *bufferSink) Output() string { return s.b.String() }

// liveSink accumulates like bufferSink and also forwards every chunk to the
// caller's writer as it arrives.
type liveSink struct {
	buffer bufferSink
	w      io.Writer
}

func newLiveSink(w io.Writer) *liveSink { return &liveSink{w: w} }

func (s *liveSink) WriteChunk(chunk string) {
	if chunk != "" {
		fmt.Fprint(s.w, chunk)
	}
	s.buffer.WriteChunk(chunk)
}

func (s *liveSink) Output() string { return s.buffer.Output() }
