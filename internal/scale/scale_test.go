package scale

import "testing"

func TestPutCompactSingleByte(t *testing.T) {
	e := NewEncoder()
	e.PutCompact(3)
	got := e.Bytes()
	want := []byte{0x0c} // 3 << 2
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("PutCompact(3) = %x, want %x", got, want)
	}
}

func TestPutCompactTwoByte(t *testing.T) {
	e := NewEncoder()
	e.PutCompact(100)
	// 100 encodes as two-byte mode per the SCALE spec reference vector.
	want := []byte{0x91, 0x01}
	got := e.Bytes()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("PutCompact(100) = %x, want %x", got, want)
	}
}

func TestPutBytesLengthPrefixed(t *testing.T) {
	e := NewEncoder()
	e.PutBytes([]byte{1, 2, 3})
	got := e.Bytes()
	want := []byte{0x0c, 1, 2, 3} // compact(3) || payload
	if len(got) != len(want) {
		t.Fatalf("PutBytes length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestOptionRoundTripShape(t *testing.T) {
	none := NewEncoder()
	none.PutOptionNone()
	if got := none.Bytes(); len(got) != 1 || got[0] != 0x00 {
		t.Errorf("PutOptionNone = %x, want [0x00]", got)
	}

	some := NewEncoder()
	some.PutOptionSome([]byte{0xAB})
	if got := some.Bytes(); len(got) != 2 || got[0] != 0x01 || got[1] != 0xAB {
		t.Errorf("PutOptionSome = %x, want [0x01 0xAB]", got)
	}
}
