package trail

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/o0olele/breadcrumbs-go/math64"
)

// Blob format constants
const (
	TRAIL_BLOB_MAGIC   = 0x43524D42 // "CRMB"
	TRAIL_BLOB_VERSION = 1
)

var (
	ErrBadMagic = errors.New("trail: invalid blob format")
	ErrVersion  = errors.New("trail: unsupported blob version")
)

// BlobHeader precedes every encoded trail.
type BlobHeader struct {
	Magic   uint32
	Version uint32
}

// State is the persisted form of a Recorder.
type State struct {
	Context      string
	Points       []math64.Vector3
	SegmentStart int
	Last         *math64.Vector3
	LastTick     int64
}

// State captures the recorder for persistence.
func (r *Recorder) State() *State {
	st := &State{
		Context:      r.context,
		Points:       r.Points(),
		SegmentStart: r.segmentStart,
		LastTick:     r.lastTick,
	}
	if r.last != nil {
		last := *r.last
		st.Last = &last
	}
	return st
}

// Restore replaces the trail with st when st belongs to context. The
// segment start is clamped and the buffer cap is applied.
func (r *Recorder) Restore(st *State, context string) bool {
	if st == nil || st.Context == "" || st.Context != context {
		return false
	}

	r.Wipe()
	r.context = st.Context
	r.points = append([]math64.Vector3(nil), st.Points...)
	r.segmentStart = math64.Clamp(st.SegmentStart, 0, len(r.points))
	r.lastTick = st.LastTick
	switch {
	case st.Last != nil:
		r.mark(*st.Last, st.LastTick)
	case len(r.points) > 0:
		r.mark(r.points[len(r.points)-1], st.LastTick)
	}
	r.evict()
	return true
}

// Encode writes st in the binary blob format, gzip compressed.
func Encode(st *State) ([]byte, error) {
	buf := bytes.NewBuffer(nil)

	header := BlobHeader{
		Magic:   TRAIL_BLOB_MAGIC,
		Version: TRAIL_BLOB_VERSION,
	}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	// write context
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(st.Context))); err != nil {
		return nil, fmt.Errorf("failed to write context length: %w", err)
	}
	buf.WriteString(st.Context)

	// write segment start and last tick
	if err := binary.Write(buf, binary.LittleEndian, uint32(st.SegmentStart)); err != nil {
		return nil, fmt.Errorf("failed to write segment start: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, st.LastTick); err != nil {
		return nil, fmt.Errorf("failed to write last tick: %w", err)
	}

	// write last recorded point
	var hasLast uint8
	var last math64.Vector3
	if st.Last != nil {
		hasLast, last = 1, *st.Last
	}
	if err := binary.Write(buf, binary.LittleEndian, hasLast); err != nil {
		return nil, fmt.Errorf("failed to write last flag: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, last); err != nil {
		return nil, fmt.Errorf("failed to write last point: %w", err)
	}

	// write points
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(st.Points))); err != nil {
		return nil, fmt.Errorf("failed to write point count: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, st.Points); err != nil {
		return nil, fmt.Errorf("failed to write points: %w", err)
	}

	return compress(buf.Bytes())
}

// Decode reads a blob produced by Encode.
func Decode(blob []byte) (*State, error) {
	content, err := decompress(blob)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewReader(content)

	var header BlobHeader
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header.Magic != TRAIL_BLOB_MAGIC {
		return nil, ErrBadMagic
	}
	if header.Version != TRAIL_BLOB_VERSION {
		return nil, fmt.Errorf("%w: %d", ErrVersion, header.Version)
	}

	st := &State{}

	var contextLen uint32
	if err := binary.Read(buf, binary.LittleEndian, &contextLen); err != nil {
		return nil, fmt.Errorf("failed to read context length: %w", err)
	}
	if int64(contextLen) > int64(buf.Len()) {
		return nil, fmt.Errorf("failed to read context: length %d exceeds blob", contextLen)
	}
	context := make([]byte, contextLen)
	if _, err := io.ReadFull(buf, context); err != nil {
		return nil, fmt.Errorf("failed to read context: %w", err)
	}
	st.Context = string(context)

	var segmentStart uint32
	if err := binary.Read(buf, binary.LittleEndian, &segmentStart); err != nil {
		return nil, fmt.Errorf("failed to read segment start: %w", err)
	}
	st.SegmentStart = int(segmentStart)

	if err := binary.Read(buf, binary.LittleEndian, &st.LastTick); err != nil {
		return nil, fmt.Errorf("failed to read last tick: %w", err)
	}

	var hasLast uint8
	var last math64.Vector3
	if err := binary.Read(buf, binary.LittleEndian, &hasLast); err != nil {
		return nil, fmt.Errorf("failed to read last flag: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &last); err != nil {
		return nil, fmt.Errorf("failed to read last point: %w", err)
	}
	if hasLast == 1 {
		st.Last = &last
	}

	var count uint32
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read point count: %w", err)
	}
	if int64(count)*24 > int64(buf.Len()) {
		return nil, fmt.Errorf("failed to read points: count %d exceeds blob", count)
	}
	st.Points = make([]math64.Vector3, count)
	if err := binary.Read(buf, binary.LittleEndian, st.Points); err != nil {
		return nil, fmt.Errorf("failed to read points: %w", err)
	}

	return st, nil
}

func compress(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(content); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(content []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}
