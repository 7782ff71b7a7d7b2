// Package chromosome provides the bit-string representation of a two-way
// partition and its 32-bit chunk wire format.
//
// Gene i lives in bit i%32 of chunk i/32; the least significant bit of chunk 0
// is gene 0. A set bit places the matching reference vector in partition B.
package chromosome

import (
	"bytes"
	"fmt"

	"batfit/pkg/fitness/core"
)

const (
	pow uint = 5
	mod uint = 31
)

// Chromosome is a fixed-length bit-string packed into 32-bit chunks.
type Chromosome struct {
	len    int
	chunks []uint32
}

// New returns an all-zero chromosome (every gene in partition A).
func New(length int) *Chromosome {
	if length < 0 {
		length = 0
	}
	return &Chromosome{length, make([]uint32, core.ChunksPerChromosome(length))}
}

func (c *Chromosome) Len() int {
	return c.len
}

// Set moves gene pos to partition B. Positions outside [0, Len) are ignored.
func (c *Chromosome) Set(pos int) {
	if pos < 0 || pos >= c.len {
		return
	}
	c.chunks[pos>>pow] |= 1 << (uint(pos) & mod)
}

// Clear moves gene pos to partition A. Positions outside [0, Len) are ignored.
func (c *Chromosome) Clear(pos int) {
	if pos < 0 || pos >= c.len {
		return
	}
	c.chunks[pos>>pow] &^= 1 << (uint(pos) & mod)
}

// Has reports whether gene pos is assigned to partition B.
func (c *Chromosome) Has(pos int) bool {
	if pos < 0 || pos >= c.len {
		return false
	}
	return c.chunks[pos>>pow]&(1<<(uint(pos)&mod)) != 0
}

// Count returns the number of genes in partition B.
func (c *Chromosome) Count() int {
	n := 0
	for i := 0; i < c.len; i++ {
		if c.Has(i) {
			n++
		}
	}
	return n
}

// Chunks returns a copy of the wire chunks.
func (c *Chromosome) Chunks() []uint32 {
	out := make([]uint32, len(c.chunks))
	copy(out, c.chunks)
	return out
}

// String renders the chromosome big-endian: the rightmost character is gene 0.
func (c *Chromosome) String() string {
	var buffer bytes.Buffer
	for i := c.len - 1; i >= 0; i-- {
		if c.Has(i) {
			buffer.WriteByte('1')
		} else {
			buffer.WriteByte('0')
		}
	}
	return buffer.String()
}

// FromString converts a string in big-endian notation to a new chromosome.
func FromString(s string) (*Chromosome, error) {
	c := New(len(s))
	for i, ch := range s {
		if ch == '1' {
			c.Set(len(s) - 1 - i)
		} else if ch != '0' {
			return nil, core.Errorf(core.ErrInvalidInput, "invalid character %q in chromosome string", ch)
		}
	}
	return c, nil
}

// FromBools builds a chromosome where genes[i] true means partition B.
func FromBools(genes []bool) *Chromosome {
	c := New(len(genes))
	for i, b := range genes {
		if b {
			c.Set(i)
		}
	}
	return c
}

// FromChunks wraps wire chunks. Padding bits past length are ignored.
func FromChunks(chunks []uint32, length int) (*Chromosome, error) {
	if length < 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "negative chromosome length %d", length)
	}
	if want := core.ChunksPerChromosome(length); len(chunks) != want {
		return nil, core.Errorf(core.ErrInvalidInput, "got %d chunks, want %d for length %d", len(chunks), want, length)
	}
	return &Chromosome{length, Canonical(chunks, length)}, nil
}

// Canonical returns a copy of one chromosome's chunks with the padding bits
// past chromoLen cleared, so equal partitions have equal words.
func Canonical(chunks []uint32, chromoLen int) []uint32 {
	out := make([]uint32, len(chunks))
	copy(out, chunks)
	if r := uint(chromoLen) & mod; r != 0 && len(out) > 0 {
		out[len(out)-1] &= (1 << r) - 1
	}
	return out
}

// Pack concatenates chromosomes of equal length into one chunk stream.
func Pack(chromosomes []*Chromosome) ([]uint32, error) {
	if len(chromosomes) == 0 {
		return []uint32{}, nil
	}
	length := chromosomes[0].Len()
	per := core.ChunksPerChromosome(length)
	out := make([]uint32, 0, per*len(chromosomes))
	for i, c := range chromosomes {
		if c.Len() != length {
			return nil, core.Errorf(core.ErrInvalidInput, "chromosome %d has length %d, want %d", i, c.Len(), length)
		}
		out = append(out, c.chunks...)
	}
	return out, nil
}

// PackStrings parses big-endian bit strings of chromoLen genes each and packs
// them into one chunk stream.
func PackStrings(bits []string, chromoLen int) ([]uint32, error) {
	bats := make([]*Chromosome, len(bits))
	for i, s := range bits {
		if len(s) != chromoLen {
			return nil, core.Errorf(core.ErrInvalidInput, "bits[%d] has %d genes, want %d", i, len(s), chromoLen)
		}
		c, err := FromString(s)
		if err != nil {
			return nil, err
		}
		bats[i] = c
	}
	if len(bats) == 0 {
		return []uint32{}, nil
	}
	return Pack(bats)
}

// Split slices a chunk stream into numBats per-chromosome views. The views
// share memory with stream.
func Split(stream []uint32, chromoLen, numBats int) ([][]uint32, error) {
	if chromoLen < 0 || numBats < 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "negative shape (chromo_len=%d, num_bats=%d)", chromoLen, numBats)
	}
	per := core.ChunksPerChromosome(chromoLen)
	if len(stream) != per*numBats {
		return nil, fmt.Errorf("split %d chunks into %d chromosomes: %w", len(stream), numBats,
			core.Errorf(core.ErrConfiguration, "want %d chunks", per*numBats))
	}
	out := make([][]uint32, numBats)
	for i := range out {
		out[i] = stream[i*per : (i+1)*per : (i+1)*per]
	}
	return out, nil
}

// Bit reads gene g from a chunk slice without building a Chromosome.
func Bit(chunks []uint32, g int) bool {
	return chunks[uint(g)>>pow]&(1<<(uint(g)&mod)) != 0
}
