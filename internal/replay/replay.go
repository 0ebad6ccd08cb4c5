// Package replay records matches as zstd-compressed JSONL and plays them
// back. The first line of a replay holds the header, every following line
// one tick.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/amalg/go-pommerman/internal/game"
)

// Version of the replay line format.
const Version = 1

// Header describes the match a replay belongs to.
type Header struct {
	Version int                   `json:"version"`
	Started time.Time             `json:"started"`
	Config  game.GameConfig       `json:"config"`
	Seated  [game.AgentCount]bool `json:"seated"`
	Agents  []string              `json:"agents"`
}

// line is one JSONL record. Exactly one field is set.
type line struct {
	Header *Header     `json:"header,omitempty"`
	Frame  *game.Frame `json:"frame,omitempty"`
}

// Writer appends replay lines to a compressed file.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// Create opens a new replay at path and writes its header.
func Create(path string, h Header) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}

	h.Version = Version
	if err := w.write(line{Header: &h}); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// FileName returns the replay file name for a match started at t.
func FileName(t time.Time, seed int64) string {
	return fmt.Sprintf("match-%s-%d.jsonl.zst", t.UTC().Format("20060102-150405"), seed)
}

// WriteFrame appends one tick.
func (w *Writer) WriteFrame(f game.Frame) error {
	return w.write(line{Frame: &f})
}

func (w *Writer) write(l line) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return fmt.Errorf("replay writer is closed")
	}
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the compressed stream and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err != nil && err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	return err1
}

// Reader streams the frames of a replay file.
type Reader struct {
	Header Header

	f    *os.File
	dec  *zstd.Decoder
	sc   *bufio.Scanner
	name string
}

// Open opens a replay and reads its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	r := &Reader{f: f, dec: dec, sc: sc, name: filepath.Base(path)}

	l, err := r.next()
	if err != nil {
		r.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty replay", r.name)
		}
		return nil, err
	}
	if l.Header == nil {
		r.Close()
		return nil, fmt.Errorf("%s: missing header", r.name)
	}
	if l.Header.Version != Version {
		r.Close()
		return nil, fmt.Errorf("%s: unsupported version %d", r.name, l.Header.Version)
	}
	r.Header = *l.Header
	return r, nil
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (game.Frame, error) {
	l, err := r.next()
	if err != nil {
		return game.Frame{}, err
	}
	if l.Frame == nil {
		return game.Frame{}, fmt.Errorf("%s: expected a frame", r.name)
	}
	return *l.Frame, nil
}

func (r *Reader) next() (line, error) {
	var l line
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return l, fmt.Errorf("%s: %w", r.name, err)
		}
		return l, io.EOF
	}
	if err := json.Unmarshal(r.sc.Bytes(), &l); err != nil {
		return l, fmt.Errorf("%s: unmarshal: %w", r.name, err)
	}
	return l, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

// ReadAll reads every frame of the replay at path.
func ReadAll(path string) (Header, []game.Frame, error) {
	r, err := Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer r.Close()

	var frames []game.Frame
	for {
		f, err := r.Next()
		if err == io.EOF {
			return r.Header, frames, nil
		}
		if err != nil {
			return r.Header, frames, err
		}
		frames = append(frames, f)
	}
}

// Verify re-simulates the match from its header using the recorded moves
// and checks every tick against the recorded state. It returns the number
// of ticks checked.
func Verify(r *Reader) (int, error) {
	s := game.NewState(r.Header.Config)
	for id, seated := range r.Header.Seated {
		if !seated {
			s.RemoveAgent(id)
		}
	}

	checked := 0
	for {
		f, err := r.Next()
		if err == io.EOF {
			return checked, nil
		}
		if err != nil {
			return checked, err
		}
		// Inconsistent ticks are replayed as they were played; they still
		// advance the clock.
		_ = game.Step(s, f.Moves)
		if err := compare(s, &f.State); err != nil {
			return checked, fmt.Errorf("tick %d: %w", s.TimeStep, err)
		}
		checked++
	}
}

func compare(got, want *game.State) error {
	switch {
	case got.TimeStep != want.TimeStep:
		return fmt.Errorf("tick mismatch: want=%d got=%d", got.TimeStep, want.TimeStep)
	case got.Board != want.Board:
		return fmt.Errorf("board differs")
	case got.Agents != want.Agents:
		return fmt.Errorf("agents differ")
	case got.Bombs != want.Bombs:
		return fmt.Errorf("bombs differ")
	case got.Flames != want.Flames:
		return fmt.Errorf("flames differ")
	case got.AliveAgents != want.AliveAgents:
		return fmt.Errorf("alive count differs: %d vs %d", got.AliveAgents, want.AliveAgents)
	}
	return nil
}
