/*
NAME
  stream.go

DESCRIPTION
  stream.go provides a positioned byte-stream cursor over an in-memory log
  buffer, along with the variable-byte and tag-encoded group reads needed by
  binary telemetry decoders. It is a general purpose primitive: it knows
  nothing about flight-log frame types, predictors or encodings.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bytestream provides a positioned cursor over a byte buffer with
// the byte, variable-byte and tag-encoded group reads used by compact binary
// telemetry formats.
package bytestream

// EOF is the distinguished non-byte sentinel returned by ReadChar and
// PeekChar once the stream is exhausted.
const EOF = -1

// Stream is a positioned cursor over a byte buffer. It tracks the original
// window bounds (start, end) as well as the current position (pos) and
// whether a read has run past end (eof). Stream holds no copy of the
// underlying data; the caller retains ownership of the buffer for the
// Stream's lifetime.
type Stream struct {
	data  []byte
	start int
	pos   int
	end   int
	eof   bool
}

// New returns a Stream positioned at the start of data.
func New(data []byte) *Stream {
	return &Stream{data: data, start: 0, pos: 0, end: len(data)}
}

// NewRange returns a Stream over data restricted to [start, end).
func NewRange(data []byte, start, end int) *Stream {
	return &Stream{data: data, start: start, pos: start, end: end}
}

// Start returns the offset the stream was opened at.
func (s *Stream) Start() int { return s.start }

// Pos returns the current cursor offset.
func (s *Stream) Pos() int { return s.pos }

// End returns the exclusive upper bound of the stream's window.
func (s *Stream) End() int { return s.end }

// EOF reports whether a read has previously run past End.
func (s *Stream) EOF() bool { return s.eof }

// SetEnd clamps the stream's window to a new, smaller end offset. This is
// used to implement LOG_END clamping (spec.md §4.6): once a terminator event
// is recognized, nothing past it should be visible to further reads.
func (s *Stream) SetEnd(end int) {
	if end < s.end {
		s.end = end
	}
}

// Seek repositions the cursor to an absolute offset and clears the EOF flag
// if the new position is within bounds. Used by the resynchronizer to rewind
// one byte past a corrupt frame's start.
func (s *Stream) Seek(pos int) {
	s.pos = pos
	if pos < s.end {
		s.eof = false
	}
}

// ReadByte returns the next byte in the stream, or 0 with eof set if the
// stream is exhausted.
func (s *Stream) ReadByte() byte {
	if s.pos >= s.end {
		s.eof = true
		return 0
	}
	b := s.data[s.pos]
	s.pos++
	return b
}

// ReadChar behaves like ReadByte but returns EOF instead of 0 when
// exhausted, matching the ByteStream contract's readChar/EOF sentinel.
func (s *Stream) ReadChar() int {
	if s.pos >= s.end {
		s.eof = true
		return EOF
	}
	b := s.data[s.pos]
	s.pos++
	return int(b)
}

// UnreadChar pushes one byte back onto the stream. It is a no-op if the
// cursor is already at start.
func (s *Stream) UnreadChar() {
	if s.pos > s.start {
		s.pos--
		s.eof = false
	}
}

// PeekChar returns the next byte without advancing the cursor, or EOF if
// the stream is exhausted.
func (s *Stream) PeekChar() int {
	if s.pos >= s.end {
		return EOF
	}
	return int(s.data[s.pos])
}

// ReadS8 reads a signed 8-bit integer.
func (s *Stream) ReadS8() int8 {
	return int8(s.ReadByte())
}

// ReadS16 reads a little-endian signed 16-bit integer.
func (s *Stream) ReadS16() int16 {
	lo := s.ReadByte()
	hi := s.ReadByte()
	return int16(uint16(lo) | uint16(hi)<<8)
}

// ReadUnsignedVB reads an unsigned variable-byte integer: 7 bits of payload
// per byte, little-endian group order, continuation signalled by the
// top bit. Decoding stops once 5 groups have been consumed (32 bits' worth
// plus the continuation bits), which bounds the read even against a
// corrupted stream of all-continuation bytes.
func (s *Stream) ReadUnsignedVB() uint32 {
	var result uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b := s.ReadByte()
		result |= uint32(b&0x7f) << shift
		if b < 0x80 {
			break
		}
	}
	return result
}

// ReadSignedVB reads a ZigZag-encoded signed variable-byte integer: the
// unsigned VB is remapped so that small-magnitude negative numbers encode to
// small unsigned values (0,-1,1,-2,2,... -> 0,1,2,3,4,...).
func (s *Stream) ReadSignedVB() int32 {
	v := s.ReadUnsignedVB()
	return int32(v>>1) ^ -int32(v&1)
}

// ReadString reads n raw bytes.
func (s *Stream) ReadString(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = s.ReadByte()
	}
	return out
}

// sign-extension helpers for the tagged-group decoders below.

func signExtend2Bit(v byte) int32 {
	return int32(int8(v<<6)) >> 6
}

func signExtend4Bit(v byte) int32 {
	return int32(int8(v<<4)) >> 4
}

func signExtend6Bit(v byte) int32 {
	return int32(int8(v<<2)) >> 2
}

func signExtend24Bit(v uint32) int32 {
	return int32(v<<8) >> 8
}

// ReadTag8_4S16V1 reads four signed 16-bit-range values packed behind a
// single selector byte (the data-version-1 wire variant of TAG8_4S16): each
// 2-bit selector field chooses a width (zero, 4-bit nibble-pair, 8-bit or
// 16-bit) for the corresponding output value. In this variant 4-bit pairs
// share a byte in the order they're selected, independent of field parity.
func (s *Stream) ReadTag8_4S16V1(out *[4]int32) {
	selector := s.ReadByte()
	var nibblePending bool
	var pendingByte byte
	for i := 0; i < 4; i++ {
		switch (selector >> uint(i*2)) & 0x03 {
		case 0:
			out[i] = 0
		case 1:
			if !nibblePending {
				pendingByte = s.ReadByte()
				out[i] = int32(int8(pendingByte<<4)) >> 4
				nibblePending = true
			} else {
				out[i] = int32(int8(pendingByte&0xf0)) >> 4
				nibblePending = false
			}
		case 2:
			out[i] = int32(int8(s.ReadByte()))
		case 3:
			out[i] = int32(s.ReadS16())
		}
	}
}

// ReadTag8_4S16V2 reads four signed 16-bit-range values packed behind a
// single selector byte (the data-version-2+ wire variant of TAG8_4S16): each
// 2-bit selector field chooses a width for the corresponding output value,
// with 4-bit pairs always combined from fields (0,1) and (2,3).
func (s *Stream) ReadTag8_4S16V2(out *[4]int32) {
	selector := s.ReadByte()
	var combined byte
	for i := 0; i < 4; i++ {
		switch (selector >> uint(i*2)) & 0x03 {
		case 0:
			out[i] = 0
		case 1:
			if i%2 == 0 {
				combined = s.ReadByte()
				out[i] = int32(combined>>4) - 8
			} else {
				out[i] = int32(combined&0x0f) - 8
			}
		case 2:
			out[i] = int32(int8(s.ReadByte()))
		case 3:
			out[i] = int32(s.ReadS16())
		}
	}
}

// ReadTag2_3S32 reads three signed 32-bit-range values behind a lead byte
// whose top two bits select a common width (2, 4 or 6 bits packed in the
// lead byte itself) or, in the fourth case, a per-field width of 8, 16, 24 or
// 32 bits chosen by 2 more bits per field.
func (s *Stream) ReadTag2_3S32(out *[3]int32) {
	lead := s.ReadByte()
	switch lead >> 6 {
	case 0:
		out[0] = signExtend2Bit((lead >> 4) & 0x03)
		out[1] = signExtend2Bit((lead >> 2) & 0x03)
		out[2] = signExtend2Bit(lead & 0x03)
	case 1:
		out[0] = signExtend4Bit(lead & 0x0f)
		b1 := s.ReadByte()
		out[1] = signExtend4Bit(b1 >> 4)
		out[2] = signExtend4Bit(b1 & 0x0f)
	case 2:
		out[0] = signExtend6Bit(lead & 0x3f)
		b1 := s.ReadByte()
		out[1] = signExtend6Bit(b1 & 0x3f)
		b2 := s.ReadByte()
		out[2] = signExtend6Bit(b2 & 0x3f)
	case 3:
		sel := lead
		for i := 0; i < 3; i++ {
			switch sel & 0x03 {
			case 0:
				out[i] = int32(int8(s.ReadByte()))
			case 1:
				out[i] = int32(s.ReadS16())
			case 2:
				b1 := uint32(s.ReadByte())
				b2 := uint32(s.ReadByte())
				b3 := uint32(s.ReadByte())
				out[i] = signExtend24Bit(b1 | b2<<8 | b3<<16)
			case 3:
				b1 := uint32(s.ReadByte())
				b2 := uint32(s.ReadByte())
				b3 := uint32(s.ReadByte())
				b4 := uint32(s.ReadByte())
				out[i] = int32(b1 | b2<<8 | b3<<16 | b4<<24)
			}
			sel >>= 2
		}
	}
}

// ReadTag8_8SVB reads up to 8 signed VB values as a tagged group: if n is 1
// no header byte is used (the single value is simply a signed VB), otherwise
// a header byte precedes the group with one bit per value indicating
// whether it was written (1) or omitted because it was zero (0).
func (s *Stream) ReadTag8_8SVB(out []int32, n int) {
	if n == 1 {
		out[0] = s.ReadSignedVB()
		return
	}
	header := s.ReadByte()
	for i := 0; i < n; i++ {
		if header&0x01 != 0 {
			out[i] = s.ReadSignedVB()
		} else {
			out[i] = 0
		}
		header >>= 1
	}
}
