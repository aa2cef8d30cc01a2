// Copyright 2025 smart-bench-go
//
// Package scale implements the minimal slice of the parity-scale-codec
// wire format the Wasm adapter needs to build
// instantiate_with_code/call extrinsics: compact (two-bit mode prefix)
// integers, fixed-width integers, byte vectors, and struct
// concatenation. No third-party Go implementation of parity's codec
// exists in the retrieved dependency graph, and a full SCALE codec
// library is out of scope for what is, in substance, one wire-format
// helper — so this is a deliberate, narrow stdlib-only component (see
// DESIGN.md).
package scale

import "encoding/binary"

// Encoder accumulates SCALE-encoded bytes.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the accumulated encoding.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// PutCompact encodes n as a SCALE compact integer.
//
// SCALE compact encoding uses the low two bits of the first byte as a
// mode selector: 0b00 single-byte (values < 64), 0b01 two-byte,
// 0b10 four-byte, 0b11 big-integer mode with a length prefix. All four
// modes are produced; values of 2^30 and above (e.g. millisecond
// timestamps) use big-integer mode.
func (e *Encoder) PutCompact(n uint64) {
	switch {
	case n < 1<<6:
		e.buf = append(e.buf, byte(n<<2))
	case n < 1<<14:
		v := uint16(n<<2) | 0b01
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], v)
		e.buf = append(e.buf, tmp[:]...)
	case n < 1<<30:
		v := uint32(n<<2) | 0b10
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		e.buf = append(e.buf, tmp[:]...)
	default:
		// Big-integer mode: low byte encodes ((len(bytes)-4)<<2)|0b11,
		// followed by the little-endian minimal byte representation.
		var raw []byte
		for n > 0 {
			raw = append(raw, byte(n))
			n >>= 8
		}
		e.buf = append(e.buf, byte((len(raw)-4)<<2)|0b11)
		e.buf = append(e.buf, raw...)
	}
}

// PutBytes SCALE-encodes a byte vector: a compact length prefix
// followed by the raw bytes.
func (e *Encoder) PutBytes(b []byte) {
	e.PutCompact(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// PutRaw appends bytes with no length prefix, for fixed-width fields
// (account ids, hashes, selectors already carrying their own framing).
func (e *Encoder) PutRaw(b []byte) {
	e.buf = append(e.buf, b...)
}

// PutUint8 appends a single byte, typically a SCALE enum variant index.
func (e *Encoder) PutUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// PutUint32 appends a little-endian fixed-width u32.
func (e *Encoder) PutUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

// PutUint64Raw appends a little-endian fixed-width u64 (not compact
// encoding), matching how pallet-contracts encodes Weight fields.
func (e *Encoder) PutUint64Raw(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

// PutUint128 appends a fixed-width u128 whose 16 bytes the caller
// already holds in little-endian order.
func (e *Encoder) PutUint128(v [16]byte) {
	e.buf = append(e.buf, v[:]...)
}

// PutOptionNone appends the SCALE `None` variant tag (0x00) for an
// Option<T> field.
func (e *Encoder) PutOptionNone() {
	e.buf = append(e.buf, 0x00)
}

// PutOptionSome appends the SCALE `Some` variant tag (0x01) followed by
// the caller-encoded payload.
func (e *Encoder) PutOptionSome(payload []byte) {
	e.buf = append(e.buf, 0x01)
	e.buf = append(e.buf, payload...)
}

// Decoder reads SCALE-encoded values off a byte slice sequentially,
// the mirror image of Encoder. Used for the narrow set of node
// responses this driver needs to pick fields out of (dry-run gas
// estimates, extrinsic headers) rather than as a general-purpose SCALE
// decoder.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps b for sequential reads starting at offset 0.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Remaining reports how many undecoded bytes are left.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Uint8 reads a single byte.
func (d *Decoder) Uint8() (uint8, error) {
	if d.Remaining() < 1 {
		return 0, errUnexpectedEOF
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

// Uint64 reads a little-endian fixed-width u64.
func (d *Decoder) Uint64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, errUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos : d.pos+8])
	d.pos += 8
	return v, nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (d *Decoder) Skip(n int) error {
	if d.Remaining() < n {
		return errUnexpectedEOF
	}
	d.pos += n
	return nil
}

// Compact reads a SCALE compact integer, the inverse of
// Encoder.PutCompact, covering all four modes. Big-integer values
// longer than 8 bytes do not fit the uint64 result.
func (d *Decoder) Compact() (uint64, error) {
	if d.Remaining() < 1 {
		return 0, errUnexpectedEOF
	}
	mode := d.buf[d.pos] & 0b11
	switch mode {
	case 0b00:
		v := uint64(d.buf[d.pos] >> 2)
		d.pos++
		return v, nil
	case 0b01:
		if d.Remaining() < 2 {
			return 0, errUnexpectedEOF
		}
		v := binary.LittleEndian.Uint16(d.buf[d.pos : d.pos+2])
		d.pos += 2
		return uint64(v >> 2), nil
	case 0b10:
		if d.Remaining() < 4 {
			return 0, errUnexpectedEOF
		}
		v := binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4])
		d.pos += 4
		return uint64(v >> 2), nil
	default:
		length := int(d.buf[d.pos]>>2) + 4
		d.pos++
		if d.Remaining() < length {
			return 0, errUnexpectedEOF
		}
		var v uint64
		for i := length - 1; i >= 0; i-- {
			v = v<<8 | uint64(d.buf[d.pos+i])
		}
		d.pos += length
		return v, nil
	}
}

// Bytes reads a SCALE byte vector: a compact length prefix followed by
// that many raw bytes.
func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.Compact()
	if err != nil {
		return nil, err
	}
	if d.Remaining() < int(n) {
		return nil, errUnexpectedEOF
	}
	out := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return out, nil
}

// Raw reads n bytes with no framing.
func (d *Decoder) Raw(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, errUnexpectedEOF
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

var errUnexpectedEOF = &DecodeError{Reason: "unexpected end of SCALE-encoded data"}

// DecodeError wraps a SCALE decode failure.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "scale: " + e.Reason
}
