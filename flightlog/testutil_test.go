package flightlog

import "github.com/ausocean/blackbox/bytestream"

// vbEncode appends the unsigned variable-byte encoding of v to buf.
func vbEncode(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			break
		}
	}
	return buf
}

// svbEncode appends the ZigZag signed variable-byte encoding of v to buf.
func svbEncode(buf []byte, v int32) []byte {
	zz := uint32(v<<1) ^ uint32(v>>31)
	return vbEncode(buf, zz)
}

func newTestStream(data []byte) *bytestream.Stream {
	return bytestream.New(data)
}
