// Package bitstream provides bit-granular buffers. They are the plaintext
// container of the elgamal package: messages are written into a Stream,
// encrypted block by block, and read back from one after decryption.
package bitstream

import (
	"math/big"

	"golang.org/x/xerrors"
)

var (
	// ErrNotEnoughBits is returned when reading past the end of a buffer.
	ErrNotEnoughBits = xerrors.New("not enough bits in stream")
	// ErrInvalidPosition is returned when seeking outside [0, Len].
	ErrInvalidPosition = xerrors.New("invalid stream position")
	// ErrValueTooLarge is returned when a value does not fit the requested
	// width, or is negative.
	ErrValueTooLarge = xerrors.New("value does not fit in width")
)

// Buffer is a sequence of bits with a cursor. Writes happen at the cursor,
// overwriting existing bits and extending the buffer when needed; reads
// consume bits from the cursor.
type Buffer interface {
	WriteBits(v *big.Int, width int) error
	ReadBits(width int) (*big.Int, error)
	WriteBytes(b []byte)
	ReadBytes(n int) ([]byte, error)
	Seek(pos int) error
	Pos() int
	Len() int
	Append(other Buffer) error
}

// Stream is the in-memory Buffer. The zero value is an empty stream.
type Stream struct {
	data   []byte
	length int
	pos    int
}

// New returns an empty stream.
func New() *Stream {
	return &Stream{}
}

// FromBytes returns a stream holding b, with the cursor at the start.
func FromBytes(b []byte) *Stream {
	s := &Stream{data: append([]byte{}, b...), length: len(b) * 8}
	return s
}

// FromString returns a stream holding the UTF-8 bytes of text.
func FromString(text string) *Stream {
	return FromBytes([]byte(text))
}

// Len returns the number of bits in the stream.
func (s *Stream) Len() int {
	return s.length
}

// Pos returns the cursor.
func (s *Stream) Pos() int {
	return s.pos
}

// Seek moves the cursor.
func (s *Stream) Seek(pos int) error {
	if pos < 0 || pos > s.length {
		return xerrors.Errorf("%d not in [0, %d]: %w", pos, s.length, ErrInvalidPosition)
	}
	s.pos = pos
	return nil
}

func (s *Stream) writeBit(bit uint) {
	if s.pos == len(s.data)*8 {
		s.data = append(s.data, 0)
	}
	mask := byte(0x80) >> uint(s.pos%8)
	if bit == 1 {
		s.data[s.pos/8] |= mask
	} else {
		s.data[s.pos/8] &^= mask
	}
	s.pos++
	if s.pos > s.length {
		s.length = s.pos
	}
}

func (s *Stream) readBit() uint {
	mask := byte(0x80) >> uint(s.pos%8)
	b := s.data[s.pos/8] & mask
	s.pos++
	if b != 0 {
		return 1
	}
	return 0
}

// WriteBits writes the width lowest bits of v, most significant first.
func (s *Stream) WriteBits(v *big.Int, width int) error {
	if v.Sign() < 0 || v.BitLen() > width {
		return xerrors.Errorf("%d bits needed, width %d: %w", v.BitLen(), width, ErrValueTooLarge)
	}
	for i := width - 1; i >= 0; i-- {
		s.writeBit(v.Bit(i))
	}
	return nil
}

// ReadBits reads width bits as an unsigned big-endian number.
func (s *Stream) ReadBits(width int) (*big.Int, error) {
	if width < 0 || s.pos+width > s.length {
		return nil, xerrors.Errorf("want %d, have %d: %w", width, s.length-s.pos, ErrNotEnoughBits)
	}
	v := new(big.Int)
	for i := width - 1; i >= 0; i-- {
		if s.readBit() == 1 {
			v.SetBit(v, i, 1)
		}
	}
	return v, nil
}

// WriteUint64 writes v on 64 bits.
func (s *Stream) WriteUint64(v uint64) {
	for i := 63; i >= 0; i-- {
		s.writeBit(uint(v>>uint(i)) & 1)
	}
}

// ReadUint64 reads a 64 bits number.
func (s *Stream) ReadUint64() (uint64, error) {
	if s.pos+64 > s.length {
		return 0, xerrors.Errorf("want 64, have %d: %w", s.length-s.pos, ErrNotEnoughBits)
	}
	var v uint64
	for i := 0; i < 64; i++ {
		v = v<<1 | uint64(s.readBit())
	}
	return v, nil
}

// WriteBytes writes every byte of b on 8 bits.
func (s *Stream) WriteBytes(b []byte) {
	for _, c := range b {
		for i := 7; i >= 0; i-- {
			s.writeBit(uint(c>>uint(i)) & 1)
		}
	}
}

// ReadBytes reads n bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.pos+8*n > s.length {
		return nil, xerrors.Errorf("want %d bytes, have %d bits: %w", n, s.length-s.pos, ErrNotEnoughBits)
	}
	out := make([]byte, n)
	for j := range out {
		for i := 0; i < 8; i++ {
			out[j] = out[j]<<1 | byte(s.readBit())
		}
	}
	return out, nil
}

// WriteString writes the UTF-8 bytes of text.
func (s *Stream) WriteString(text string) {
	s.WriteBytes([]byte(text))
}

// ReadString reads n bytes as a string.
func (s *Stream) ReadString(n int) (string, error) {
	b, err := s.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Append copies every bit of other at the cursor of s. The cursor of other
// is left where it was.
func (s *Stream) Append(other Buffer) error {
	saved := other.Pos()
	if err := other.Seek(0); err != nil {
		return err
	}
	v, err := other.ReadBits(other.Len())
	if err != nil {
		return err
	}
	if err := s.WriteBits(v, other.Len()); err != nil {
		return err
	}
	return other.Seek(saved)
}

// Bytes returns the content of the stream. A trailing partial byte is
// completed with zero bits.
func (s *Stream) Bytes() []byte {
	n := (s.length + 7) / 8
	out := append([]byte{}, s.data[:n]...)
	if r := s.length % 8; r != 0 {
		out[n-1] &= byte(0xff) << uint(8-r)
	}
	return out
}

// Equal returns true if both streams hold the same bits, regardless of
// their cursors.
func (s *Stream) Equal(other *Stream) bool {
	if s.length != other.length {
		return false
	}
	a, b := s.Bytes(), other.Bytes()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
