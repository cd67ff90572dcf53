package runner

import (
	"errors"
	"os"
	"time"

	"github.com/slok/runx/internal/runner/encoding"
)

const (
	drainBufSize    = 32 * 1024
	drainChanBuffer = 64
)

// drainer owns reading the child's output pipe. It decodes every chunk and
// hands it to the supervisor, either through the handoff channel (goroutine
// mode) or as direct bounded reads (inline mode). Decoding is stateful across
// reads: a multibyte sequence split by a read boundary is completed with the
// next read, so the accumulated output equals the child's bytes decoded once.
// A blocking read here can never stall timeout enforcement: in goroutine mode
// the supervisor waits on the channel with a bounded timeout, in inline mode
// the pipe read itself carries a deadline.
type drainer struct {
	r      *os.File
	dec    *encoding.StreamDecoder
	chunks chan string
	buf    []byte
}

func newDrainer(r *os.File, dec *encoding.Decoder) *drainer {
	return &drainer{
		r:      r,
		dec:    dec.Stream(),
		chunks: make(chan string, drainChanBuffer),
		buf:    make([]byte, drainBufSize),
	}
}

// drain reads until the stream closes or turns invalid (child already
// killed), both mean end of stream. Single producer of the handoff channel.
func (d *drainer) drain() {
	defer close(d.chunks)

	for {
		n, err := d.r.Read(d.buf)
		if err != nil {
			// End of stream: flush any held back partial sequence.
			if chunk := d.dec.Decode(d.buf[:n], true); chunk != "" {
				d.chunks <- chunk
			}
			return
		}
		if n > 0 {
			d.chunks <- d.dec.Decode(d.buf[:n], false)
		}
	}
}

// readBounded performs one inline read that returns control after wait at the
// latest on platforms with pollable pipes. Where the pipe does not support
// deadlines the read blocks until data arrives or the stream ends, and the
// timeout cannot be enforced on a silent child.
func (d *drainer) readBounded(wait time.Duration) (chunk string, eof bool) {
	deadlineOK := d.r.SetReadDeadline(time.Now().Add(wait)) == nil

	n, err := d.r.Read(d.buf)
	if err == nil {
		return d.dec.Decode(d.buf[:n], false), false
	}
	if deadlineOK && errors.Is(err, os.ErrDeadlineExceeded) {
		return d.dec.Decode(d.buf[:n], false), false
	}

	return d.dec.Decode(d.buf[:n], true), true
}
