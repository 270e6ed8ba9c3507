// pkg/record/record.go
package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// Version is the recording format version written in every header.
const Version = 1

var (
	// ErrClosed is returned by Present after Close.
	ErrClosed = errors.New("recorder closed")
	// ErrVersion is returned for recordings of an unknown format version.
	ErrVersion = errors.New("unsupported recording version")
)

// Header describes the run a recording was taken from.
type Header struct {
	Version  int           `msgpack:"v"`
	Arena    physics.Arena `msgpack:"arena"`
	Strategy string        `msgpack:"strategy"`
	Seed     uint64        `msgpack:"seed"`
	Bodies   int           `msgpack:"bodies"`
}

// Frame is the state of every body after one tick.
type Frame struct {
	Tick   uint64         `msgpack:"tick"`
	Bodies []physics.Body `msgpack:"bodies"`
}

// HeaderFor describes sim.
func HeaderFor(sim *engine.Simulation) Header {
	return Header{
		Version:  Version,
		Arena:    sim.Arena(),
		Strategy: sim.BroadPhase().Name(),
		Seed:     sim.Seed(),
		Bodies:   sim.Len(),
	}
}

// Recorder is an engine.Sink writing a header followed by one msgpack
// encoded Frame per tick.
type Recorder struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	enc     *msgpack.Encoder
	closer  io.Closer
	frames  uint64
	closed  bool
	scratch Frame
}

var _ engine.Sink = (*Recorder)(nil)

// NewRecorder writes header to w and returns a recorder appending frames
// to it. If w is an io.Closer, Close closes it.
func NewRecorder(w io.Writer, header Header) (*Recorder, error) {
	header.Version = Version
	buf := bufio.NewWriter(w)
	r := &Recorder{buf: buf, enc: msgpack.NewEncoder(buf)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	if err := r.enc.Encode(&header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return r, nil
}

// Create records to a new file at path.
func Create(path string, header Header) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	r, err := NewRecorder(f, header)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Present implements engine.Sink.
func (r *Recorder) Present(tick uint64, bodies []physics.Body) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.scratch.Tick = tick
	r.scratch.Bodies = bodies
	err := r.enc.Encode(&r.scratch)
	r.scratch.Bodies = nil
	if err != nil {
		return fmt.Errorf("write frame %d: %w", tick, err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames written.
func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close flushes buffered frames and closes the underlying writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.buf.Flush()
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
	}
	if err != nil {
		return fmt.Errorf("close recording: %w", err)
	}
	return nil
}

// Reader reads a recording written by Recorder.
type Reader struct {
	header Header
	dec    *msgpack.Decoder
	closer io.Closer
}

// NewReader reads the header from rd.
func NewReader(rd io.Reader) (*Reader, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(rd))
	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, header.Version)
	}
	r := &Reader{header: header, dec: dec}
	if c, ok := rd.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

// Open reads the recording at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Header returns the recording header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	var f Frame
	if err := r.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return f, nil
}

// Replay hands every remaining frame to sink in order.
func (r *Reader) Replay(sink engine.Sink) (int, error) {
	n := 0
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := sink.Present(f.Tick, f.Bodies); err != nil {
			return n, fmt.Errorf("replay tick %d: %w", f.Tick, err)
		}
		n++
	}
}

// Close closes the underlying reader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
