package storagekey

import "testing"

func TestKeyBytesRoundTrip(t *testing.T) {
	k := Key{F1: 0x00, F2: 1, F3: 111, F4: 1000, F5: 0, F6: 42}
	b := k.Bytes()
	got := FromBytes(b)
	if got != k {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, k)
	}
}

func TestKeyCompareFieldMajorOrder(t *testing.T) {
	cases := []struct {
		name string
		a, b Key
		want int
	}{
		{"equal", Key{F1: 1}, Key{F1: 1}, 0},
		{"f1 dominates", Key{F1: 0, F6: 0xFFFFFFFF}, Key{F1: 1, F6: 0}, -1},
		{"f6 breaks tie", Key{F1: 1, F2: 1, F6: 5}, Key{F1: 1, F2: 1, F6: 6}, -1},
		{"greater", Key{F1: 2}, Key{F1: 1}, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Compare(c.b); got != c.want {
				t.Errorf("Compare() = %d, want %d", got, c.want)
			}
		})
	}
}

func TestKeyLessMatchesByteOrder(t *testing.T) {
	a := Key{F1: 0x00, F2: 1, F3: 1, F4: 1, F5: 0, F6: 10}
	b := Key{F1: 0x00, F2: 1, F3: 1, F4: 1, F5: 0, F6: 11}
	if !a.Less(b) {
		t.Fatalf("expected %v < %v", a, b)
	}
	if b.Less(a) {
		t.Fatalf("expected %v !< %v", b, a)
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{
		Start: Key{F1: 0, F5: 0, F6: 0},
		End:   Key{F1: 0, F5: 1, F6: 0},
	}
	in := Key{F1: 0, F5: 0, F6: 500}
	out := Key{F1: 0, F5: 1, F6: 0}
	if !r.Contains(in) {
		t.Errorf("expected %v to be contained in %v", in, r)
	}
	if r.Contains(out) {
		t.Errorf("expected %v (the exclusive end) to not be contained in %v", out, r)
	}
}

func TestKeyStringIsFixedWidthHex(t *testing.T) {
	k := Key{}
	s := k.String()
	if len(s) != EncodedLen*2 {
		t.Fatalf("String() length = %d, want %d", len(s), EncodedLen*2)
	}
}
