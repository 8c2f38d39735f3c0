// Package gosthash implements the reduced GOST R 34.11-94 compression
// function: the P/P-inverse symbol permutation, the A mixing transform, the
// psi/psi-inverse linear maps, round-key derivation, and Compress itself.
package gosthash

import "gostcollision/internal/magma"

// roundConstant is C2 from the key schedule; C1 and C3 are both zero and so
// never appear explicitly below.
const roundConstant uint64 = 0xCF03C33CCCCCCCCC

// phi is the position map P is built from: phi(x) = 8*((x-1) mod 4) +
// ((x-1) div 4) + 1, for x in [1,32].
func phi(x int) int {
	return 8*((x-1)%4) + (x-1)/4 + 1
}

// P permutes the 32 symbols of a State: the symbol at position phi(i)-1 in
// the input lands at position i-1 in the output.
func P(x uint64) uint64 {
	var k uint64
	for i := 1; i <= 32; i++ {
		symbol := (x >> uint((phi(i)-1)*2)) & 0b11
		k |= symbol << uint((i-1)*2)
	}
	return k
}

// PInv reverses P.
func PInv(k uint64) uint64 {
	var x uint64
	for i := 1; i <= 32; i++ {
		symbol := (k >> uint((i-1)*2)) & 0b11
		x |= symbol << uint((phi(i)-1)*2)
	}
	return x
}

// A views x as four 16-bit blocks y1..y4 (low to high) and returns
// (y1 xor y2) in the top block with y2,y3,y4 shifted down one block.
func A(x uint64) uint64 {
	shifted := x >> 16
	top := ((x & 0xffff) ^ (shifted & 0xffff)) << 48
	return shifted | top
}

// Psy views x as 16 nibbles gamma0..gamma15 (low to high) and shifts them
// down by one, filling the new top nibble with
// gamma0^gamma1^gamma2^gamma3^gamma12^gamma15.
func Psy(x uint64) uint64 {
	shifted := x >> 4
	acc := (x & 0xf) ^ ((x >> 4) & 0xf) ^ ((x >> 8) & 0xf) ^ ((x >> 12) & 0xf) ^ ((x >> 48) & 0xf) ^ ((x >> 60) & 0xf)
	return shifted | acc<<60
}

// PsyInv reverses Psy.
func PsyInv(x uint64) uint64 {
	shifted := x << 4
	sum := x >> 60
	gamma0 := sum ^ (x & 0xf) ^ ((x >> 4) & 0xf) ^ ((x >> 8) & 0xf) ^ ((x >> 44) & 0xf) ^ ((x >> 56) & 0xf)
	return shifted | gamma0
}

// PsyPow applies Psy n times for n >= 0, or PsyInv (-n) times for n < 0.
func PsyPow(x uint64, n int) uint64 {
	if n >= 0 {
		for i := 0; i < n; i++ {
			x = Psy(x)
		}
		return x
	}
	for i := 0; i < -n; i++ {
		x = PsyInv(x)
	}
	return x
}

// RoundKeys is the fixed 4-tuple (K0,K1,K2,K3) produced by KeyGen.
type RoundKeys [4]uint64

// KeyGen derives the four Magma keys used to encrypt the four sub-blocks of
// a compression step from the chaining state h and message block m.
func KeyGen(h, m uint64) RoundKeys {
	var k RoundKeys
	k[0] = P(h ^ m)

	h = A(h)
	m = A(A(m))
	k[1] = P(h ^ m)

	h = A(h) ^ roundConstant
	m = A(A(m))
	k[2] = P(h ^ m)

	h = A(h)
	m = A(A(m))
	k[3] = P(h ^ m)

	return k
}

// Compress is the reduced GOST compression function: h' = Compress(h, m).
func Compress(h, m uint64) uint64 {
	k := KeyGen(h, m)

	var s uint64
	for i := 0; i < 4; i++ {
		block := uint16(h >> uint(16*i))
		enc := magma.EncryptBlock(k[i], block)
		s |= uint64(enc) << uint(16*i)
	}

	return PsyPow(h^Psy(m^PsyPow(s, 12)), 61)
}
