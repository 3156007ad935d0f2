package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Journal frame layout:
//
//	[Magic(1)][OpCode(1)][Length(4, LE)][CRC32(4, LE)][Payload(Length)]
const (
	// MagicByte marks the start of every frame.
	MagicByte = 0xA5

	// HeaderSize is the fixed size of the frame header.
	HeaderSize = 10

	// OpCodeRecord frames carry one encoded journal record.
	OpCodeRecord byte = 0x01

	// OpCodeCheckpoint frames mark a point where a snapshot was taken.
	OpCodeCheckpoint byte = 0x02

	// maxFrameSize guards replay against a corrupted length field.
	maxFrameSize = 64 << 20
)

var (
	// ErrInvalidMagic indicates the stream lost synchronization.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates a damaged payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the stream ended inside a frame, typically a
	// write torn by a crash.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrFrameTooLarge indicates a length field beyond maxFrameSize.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// Frame is one decoded journal entry.
type Frame struct {
	Op      byte
	Payload []byte
}

// EncodeFrame appends the encoded frame to dst so that header and payload
// reach the underlying writer in a single Write.
func EncodeFrame(dst []byte, op byte, payload []byte) []byte {
	var header [HeaderSize]byte
	header[0] = MagicByte
	header[1] = op
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[6:10], crc32.ChecksumIEEE(payload))
	dst = append(dst, header[:]...)
	return append(dst, payload...)
}

// FrameWriter writes frames to an io.Writer.
type FrameWriter struct {
	w   io.Writer
	buf []byte
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes and writes one frame.
func (fw *FrameWriter) WriteFrame(op byte, payload []byte) error {
	fw.buf = EncodeFrame(fw.buf[:0], op, payload)
	_, err := fw.w.Write(fw.buf)
	return err
}

// ReadFrame reads and verifies the next frame. It returns io.EOF only when
// the stream ends exactly on a frame boundary. n is the number of bytes the
// frame occupied.
func ReadFrame(r io.Reader) (f Frame, n int, err error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Frame{}, 0, io.EOF
		}
		return Frame{}, 0, ErrIncompleteFrame
	}
	if header[0] != MagicByte {
		return Frame{}, HeaderSize, ErrInvalidMagic
	}

	length := binary.LittleEndian.Uint32(header[2:6])
	if length > maxFrameSize {
		return Frame{}, HeaderSize, ErrFrameTooLarge
	}
	expected := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, HeaderSize, ErrIncompleteFrame
	}
	if crc32.ChecksumIEEE(payload) != expected {
		return Frame{}, HeaderSize + int(length), ErrChecksumMismatch
	}
	return Frame{Op: header[1], Payload: payload}, HeaderSize + int(length), nil
}

// ScanResult summarizes a journal scan.
type ScanResult struct {
	Frames int
	// Valid is the offset just past the last intact frame.
	Valid int64
	// Err is the decoding error that stopped the scan early, if any.
	Err error
}

// Scan reads frames from r and passes each to fn until the stream ends or a
// frame fails to decode. A decoding failure is reported in ScanResult.Err
// rather than returned, so callers can decide whether to truncate the damaged
// tail. An error from fn aborts the scan and is returned as is.
func Scan(r io.Reader, fn func(Frame) error) (ScanResult, error) {
	br := bufio.NewReader(r)
	var res ScanResult
	for {
		f, n, err := ReadFrame(br)
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			res.Err = err
			return res, nil
		}
		if err := fn(f); err != nil {
			return res, err
		}
		res.Frames++
		res.Valid += int64(n)
	}
}
