// Package magma implements the reduced Magma block cipher: a 32-round
// Feistel network over 16-bit blocks (two 8-bit HalfBlocks) driven by a
// 64-bit key (eight 8-bit subkeys).
package magma

import "gostcollision/internal/bitpack"

// sboxTable is the fixed 2-bit substitution {0->1, 1->3, 2->0, 3->2}.
var sboxTable = [4]uint8{1, 3, 0, 2}

// SBOX applies sboxTable independently to each of a HalfBlock's four
// symbols.
func SBOX(hb uint8) uint8 {
	var out uint8
	for i := 0; i < 4; i++ {
		shift := uint(2 * i)
		symbol := (hb >> shift) & bitpack.SymbolMask
		out |= sboxTable[symbol] << shift
	}
	return out
}

// rotl3 rotates an 8-bit HalfBlock left by 3 bit positions.
func rotl3(hb uint8) uint8 {
	return hb<<3 | hb>>5
}

// Round is the single Feistel round used by both EncryptBlock and
// DecryptBlock, and directly by the collision attacker to compute partial
// encryptions without constructing a full key schedule:
//
//	left  <- left XOR rotl3(SBOX(right boxplus rk))
//	swap(left, right)
func Round(left, right, rk uint8) (uint8, uint8) {
	mixed := SBOX(uint8(bitpack.SumMod(uint64(right), uint64(rk), 4)))
	newLeft := left ^ rotl3(mixed)
	return right, newLeft
}

// subkeys splits a 64-bit Key into its eight 8-bit subkeys, sk[0] occupying
// the lowest byte.
func subkeys(key uint64) [8]uint8 {
	var sk [8]uint8
	for i := range sk {
		sk[i] = uint8(key >> (8 * uint(i)))
	}
	return sk
}

// subkeyIndex returns which of sk[0..8) round r (of 32) consumes:
// rounds [0,24) cycle 0..7, rounds [24,32) cycle 7..0.
func subkeyIndex(r int) int {
	if r < 24 {
		return r % 8
	}
	return 7 - (r % 8)
}

// KeySchedule expands key into the 32 round keys actually fed to Round, in
// forward order (used by EncryptBlock) or reverse order (used by
// DecryptBlock).
func KeySchedule(key uint64, reverse bool) [32]uint8 {
	sk := subkeys(key)
	var rks [32]uint8
	for r := 0; r < 32; r++ {
		rks[r] = sk[subkeyIndex(r)]
	}
	if reverse {
		for i, j := 0, 31; i < j; i, j = i+1, j-1 {
			rks[i], rks[j] = rks[j], rks[i]
		}
	}
	return rks
}

// EncryptBlock encrypts a 16-bit Block under key with the 32-round forward
// schedule.
func EncryptBlock(key uint64, block uint16) uint16 {
	return runRounds(block, KeySchedule(key, false))
}

// DecryptBlock decrypts a 16-bit Block under key with the reversed
// schedule.
func DecryptBlock(key uint64, block uint16) uint16 {
	return runRounds(block, KeySchedule(key, true))
}

func runRounds(block uint16, rks [32]uint8) uint16 {
	left := uint8(block)
	right := uint8(block >> 8)
	for _, rk := range rks {
		left, right = Round(left, right, rk)
	}
	// One final swap is subsumed by the last round, so the output packs
	// left into the high byte rather than the low byte.
	return uint16(left)<<8 | uint16(right)
}
