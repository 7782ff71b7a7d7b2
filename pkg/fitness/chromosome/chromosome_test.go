package chromosome

import (
	"errors"
	"fmt"
	"testing"

	"batfit/pkg/fitness/core"
)

var parsingTests = []string{
	"11111", "00000", "10101", "10000", "00001", "",
	"1000000000000000000000000000000001", // crosses a chunk boundary
}

func TestParsing(t *testing.T) {
	for _, s := range parsingTests {
		c, err := FromString(s)
		if err != nil {
			t.Fatalf("FromString(%q) returned error %q.", s, err)
		}
		if actual := fmt.Sprint(c); actual != s {
			t.Errorf("FromString(%q).String() = %q, expected %q.", s, actual, s)
		}
	}
}

func TestParsingRejectsGarbage(t *testing.T) {
	_, err := FromString("10x1")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

var modificationTests = []struct {
	input    string
	index    int
	expected string
}{
	{"11111", -3, "10111"},
	{"11001", 2, "11101"},
}

func TestModification(t *testing.T) {
	for _, test := range modificationTests {
		c, err := FromString(test.input)
		if err != nil {
			t.Fatal(err)
		}
		if test.index < 0 {
			c.Clear(-test.index)
		} else {
			c.Set(test.index)
		}
		if actual := fmt.Sprint(c); actual != test.expected {
			t.Errorf("Set/Clear(%q, %d) = %q, expected %q.", test.input, test.index, actual, test.expected)
		}
	}
}

func TestWireLayout(t *testing.T) {
	// bit0=1, bit1=0, bit2=1, bit3=0
	c, _ := FromString("0101")
	chunks := c.Chunks()
	if len(chunks) != 1 || chunks[0] != 0b0101 {
		t.Fatalf("chunks = %#v, expected [0x5]", chunks)
	}

	long := New(33)
	long.Set(0)
	long.Set(31)
	long.Set(32)
	chunks = long.Chunks()
	if len(chunks) != 2 || chunks[0] != 0x80000001 || chunks[1] != 1 {
		t.Fatalf("chunks = %#x", chunks)
	}
	if !Bit(chunks, 32) || Bit(chunks, 30) {
		t.Errorf("Bit disagrees with Set")
	}
	if long.Count() != 3 {
		t.Errorf("Count() = %d, expected 3", long.Count())
	}
}

func TestFromChunksMasksPadding(t *testing.T) {
	c, err := FromChunks([]uint32{0xFFFFFFFF}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if c.String() != "1111" || c.Chunks()[0] != 0xF {
		t.Errorf("padding not masked: %s %#x", c, c.Chunks())
	}

	if _, err := FromChunks([]uint32{1, 2}, 4); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected chunk count error, got %v", err)
	}
}

func TestOutOfRangeGenesAreIgnored(t *testing.T) {
	c := New(4)
	c.Set(4)
	c.Set(31)
	c.Set(-1)
	if c.Chunks()[0] != 0 {
		t.Errorf("padding written: %#x", c.Chunks())
	}
	if c.Has(31) || c.Has(-1) {
		t.Errorf("Has reported genes outside the chromosome")
	}

	c.Set(3)
	c.Clear(35)
	if c.String() != "1000" {
		t.Errorf("Clear past length changed genes: %s", c)
	}

	padded := []uint32{0xFFFFFFF5}
	if got := Canonical(padded, 4); got[0] != 0b0101 || padded[0] != 0xFFFFFFF5 {
		t.Errorf("Canonical = %#x, input %#x", got, padded)
	}
	if got := Canonical([]uint32{7}, 32); got[0] != 7 {
		t.Errorf("Canonical on a full chunk = %#x", got)
	}
}

func TestPackSplit(t *testing.T) {
	a, _ := FromString("0101")
	b, _ := FromString("1111")
	c, _ := FromString("0000")

	stream, err := Pack([]*Chromosome{a, b, c})
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(stream) != "[5 15 0]" {
		t.Fatalf("Pack = %v", stream)
	}

	parts, err := Split(stream, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []uint32{5, 15, 0} {
		if parts[i][0] != want {
			t.Errorf("part %d = %d, expected %d", i, parts[i][0], want)
		}
	}

	if _, err := Split(stream, 4, 2); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}

	short := New(3)
	if _, err := Pack([]*Chromosome{a, short}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected length mismatch error, got %v", err)
	}
}

func TestPackStrings(t *testing.T) {
	stream, err := PackStrings([]string{"0101", "0001", "0011"}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(stream) != "[5 1 3]" {
		t.Fatalf("PackStrings = %v", stream)
	}

	if _, err := PackStrings([]string{"010"}, 4); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected length error, got %v", err)
	}
	if _, err := PackStrings([]string{"01x1"}, 4); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected parse error, got %v", err)
	}
	if stream, err := PackStrings(nil, 4); err != nil || len(stream) != 0 {
		t.Errorf("empty PackStrings = %v, %v", stream, err)
	}
}

func TestWireRoundTrip(t *testing.T) {
	chunks := []uint32{0x5, 0xDEADBEEF, 0}
	buf := EncodeChunks(chunks)
	if buf[0] != 0x05 || buf[4] != 0xEF {
		t.Fatalf("not little-endian: % x", buf[:8])
	}
	back, err := DecodeChunks(buf)
	if err != nil || fmt.Sprint(back) != fmt.Sprint(chunks) {
		t.Fatalf("DecodeChunks = %v, %v", back, err)
	}

	if _, err := DecodeFloats([]byte{1, 2, 3}); err == nil {
		t.Errorf("expected error for truncated payload")
	}

	scores, err := DecodeScores(EncodeScores([]float64{18, 0.5}))
	if err != nil || scores[0] != 18 || scores[1] != 0.5 {
		t.Errorf("scores = %v, %v", scores, err)
	}
}
