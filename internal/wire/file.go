package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type FrameKind byte

const (
	FrameHeader FrameKind = 1
	FrameRound  FrameKind = 2
	FrameFooter FrameKind = 3
)

func (k FrameKind) String() string {
	switch k {
	case FrameHeader:
		return "header"
	case FrameRound:
		return "round"
	case FrameFooter:
		return "footer"
	}
	return fmt.Sprintf("frame(%d)", byte(k))
}

var magic = [4]byte{'M', 'R', 'P', 'L'}

const FormatVersion byte = 1

// maxFrame bounds a single frame payload.
const maxFrame = 256 << 20

// Writer encodes frames into a zstd stream.
type Writer struct {
	zw  *zstd.Encoder
	bw  *bufio.Writer
	enc encoder
	tmp [binary.MaxVarintLen64]byte
}

func NewWriter(w io.Writer) (*Writer, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	out := &Writer{zw: zw, bw: bufio.NewWriterSize(zw, 256*1024)}
	if _, err := out.bw.Write(magic[:]); err != nil {
		return nil, err
	}
	if err := out.bw.WriteByte(FormatVersion); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Writer) frame(kind FrameKind) error {
	if err := w.bw.WriteByte(byte(kind)); err != nil {
		return err
	}
	n := binary.PutUvarint(w.tmp[:], uint64(len(w.enc.buf)))
	if _, err := w.bw.Write(w.tmp[:n]); err != nil {
		return err
	}
	_, err := w.bw.Write(w.enc.buf)
	return err
}

func (w *Writer) WriteHeader(h *Header) error {
	w.enc.reset()
	w.enc.header(h)
	return w.frame(FrameHeader)
}

func (w *Writer) WriteRound(r *Round) error {
	w.enc.reset()
	w.enc.round(r)
	return w.frame(FrameRound)
}

func (w *Writer) WriteFooter(f *Footer) error {
	w.enc.reset()
	w.enc.footer(f)
	return w.frame(FrameFooter)
}

// Close flushes buffered frames and finishes the zstd stream. It does not
// close the underlying writer.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		_ = w.zw.Close()
		return err
	}
	return w.zw.Close()
}

// Reader iterates the frames of a match stream. Call Next, then the Decode
// method that matches the returned kind.
type Reader struct {
	zr      *zstd.Decoder
	br      *bufio.Reader
	payload []byte
	dec     decoder
	frames  int
}

func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	out := &Reader{zr: zr, br: bufio.NewReaderSize(zr, 256*1024)}
	var hdr [5]byte
	if _, err := io.ReadFull(out.br, hdr[:]); err != nil {
		zr.Close()
		return nil, fmt.Errorf("%w: missing magic: %v", ErrMalformed, err)
	}
	if [4]byte(hdr[:4]) != magic {
		zr.Close()
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformed, hdr[:4])
	}
	if hdr[4] != FormatVersion {
		zr.Close()
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrMalformed, hdr[4])
	}
	return out, nil
}

func (r *Reader) Close() { r.zr.Close() }

// Next reads the next frame. It returns io.EOF at a clean end of stream.
func (r *Reader) Next() (FrameKind, error) {
	kb, err := r.br.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	n, err := binary.ReadUvarint(r.br)
	if err != nil {
		return 0, fmt.Errorf("%w: frame %d length: %v", ErrMalformed, r.frames, err)
	}
	if n > maxFrame {
		return 0, fmt.Errorf("%w: frame %d too large (%d bytes)", ErrMalformed, r.frames, n)
	}
	if cap(r.payload) < int(n) {
		r.payload = make([]byte, n)
	}
	r.payload = r.payload[:n]
	if _, err := io.ReadFull(r.br, r.payload); err != nil {
		return 0, fmt.Errorf("%w: frame %d truncated: %v", ErrMalformed, r.frames, err)
	}
	r.frames++
	kind := FrameKind(kb)
	switch kind {
	case FrameHeader, FrameRound, FrameFooter:
	default:
		return 0, fmt.Errorf("%w: unknown frame kind %d", ErrMalformed, kb)
	}
	r.dec.reset(r.payload)
	return kind, nil
}

func (r *Reader) DecodeHeader(h *Header) error {
	r.dec.header(h)
	return r.dec.finish()
}

// DecodeRound decodes the current frame into dst, reusing its slices.
func (r *Reader) DecodeRound(dst *Round) error {
	r.dec.round(dst)
	return r.dec.finish()
}

func (r *Reader) DecodeFooter(f *Footer) error {
	r.dec.footer(f)
	return r.dec.finish()
}

// Decode reads a whole match from a stream and validates it.
func Decode(src io.Reader) (*Match, error) {
	r, err := NewReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	m := &Match{}
	for {
		kind, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch kind {
		case FrameHeader:
			if m.Header != nil {
				return nil, fmt.Errorf("%w: second header frame", ErrMalformed)
			}
			h := &Header{}
			if err := r.DecodeHeader(h); err != nil {
				return nil, fmt.Errorf("header: %w", err)
			}
			m.Header = h
		case FrameRound:
			rd := &Round{}
			if err := r.DecodeRound(rd); err != nil {
				return nil, fmt.Errorf("round frame %d: %w", len(m.Rounds)+1, err)
			}
			m.Rounds = append(m.Rounds, rd)
		case FrameFooter:
			f := &Footer{}
			if err := r.DecodeFooter(f); err != nil {
				return nil, fmt.Errorf("footer: %w", err)
			}
			m.Footer = f
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func Encode(dst io.Writer, m *Match) error {
	w, err := NewWriter(dst)
	if err != nil {
		return err
	}
	if m.Header != nil {
		if err := w.WriteHeader(m.Header); err != nil {
			return err
		}
	}
	for _, r := range m.Rounds {
		if err := w.WriteRound(r); err != nil {
			return err
		}
	}
	if m.Footer != nil {
		if err := w.WriteFooter(m.Footer); err != nil {
			return err
		}
	}
	return w.Close()
}

func ReadMatch(path string) (*Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

func WriteMatch(path string, m *Match) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, m); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
