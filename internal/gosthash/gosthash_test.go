package gosthash

import (
	"math/rand"
	"testing"
)

func randomState(rng *rand.Rand) uint64 {
	return rng.Uint64() & ((1 << 64) - 1)
}

func TestPBijection(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	for trial := 0; trial < 2000; trial++ {
		s := randomState(rng)
		if got := PInv(P(s)); got != s {
			t.Fatalf("PInv(P(%#x)) = %#x, want %#x", s, got, s)
		}
		if got := P(PInv(s)); got != s {
			t.Fatalf("P(PInv(%#x)) = %#x, want %#x", s, got, s)
		}
	}
}

func TestPsyBijection(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 2000; trial++ {
		s := randomState(rng)
		if got := PsyInv(Psy(s)); got != s {
			t.Fatalf("PsyInv(Psy(%#x)) = %#x, want %#x", s, got, s)
		}
		if got := Psy(PsyInv(s)); got != s {
			t.Fatalf("Psy(PsyInv(%#x)) = %#x, want %#x", s, got, s)
		}
	}
}

func TestPsyPowAdditivity(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	exponents := []int{-20, -5, -1, 0, 1, 5, 20}
	for trial := 0; trial < 200; trial++ {
		s := randomState(rng)
		for _, a := range exponents {
			for _, b := range exponents {
				want := PsyPow(s, a+b)
				got := PsyPow(PsyPow(s, b), a)
				if got != want {
					t.Fatalf("PsyPow(%#x, %d+%d) = %#x, want %#x", s, a, b, got, want)
				}
			}
		}
	}
}

func TestPhiIsPermutationOf1To32(t *testing.T) {
	seen := make(map[int]bool)
	for i := 1; i <= 32; i++ {
		v := phi(i)
		if v < 1 || v > 32 {
			t.Fatalf("phi(%d) = %d out of range [1,32]", i, v)
		}
		if seen[v] {
			t.Fatalf("phi(%d) = %d collides with an earlier value", i, v)
		}
		seen[v] = true
	}
}

// TestCompressOutputIsNotBitBiased is a monobit sanity check: Compress
// should not collapse its output toward all-zero or all-one bits across
// varied inputs. This is not a cryptographic claim (the reduction's
// Non-goals explicitly disclaim security); it only catches a gross
// implementation error like an XOR dropped from one of the transforms.
func TestCompressOutputIsNotBitBiased(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	var ones, total int
	for trial := 0; trial < 500; trial++ {
		h := randomState(rng)
		m := randomState(rng)
		out := Compress(h, m)
		for b := 0; b < 64; b++ {
			total++
			if out&(1<<uint(b)) != 0 {
				ones++
			}
		}
	}

	ratio := float64(ones) / float64(total)
	if ratio < 0.3 || ratio > 0.7 {
		t.Fatalf("Compress output bit ratio = %.3f (ones=%d, total=%d), want roughly 0.5", ratio, ones, total)
	}
}
