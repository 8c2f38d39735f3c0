// Command gostcollision runs the meet-in-the-middle collision search
// against a reduced GOST compression state supplied on the command line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gostcollision/internal/attack"
	"gostcollision/internal/bitpack"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("gostcollision: ")

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: gostcollision \"<32 whitespace-separated symbols, each 0-3>\"")
		os.Exit(1)
	}

	symbols, err := parseState(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "gostcollision: %v\n", err)
		os.Exit(1)
	}

	h := bitpack.Pack(symbols)

	summary := attack.NewRunSummary()
	opts := attack.NewOptions()
	opts.OnRound = func(r attack.Report) {
		summary.Observe(r)
		log.Print(summary.String())
	}

	a, err := attack.NewAttacker(h, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gostcollision: %v\n", err)
		os.Exit(1)
	}

	m1, m2, err := a.Run(context.Background())
	if err != nil {
		log.Fatalf("attack failed: %v", err)
	}

	fmt.Printf("M1: %s\n", formatState(m1))
	fmt.Printf("M2: %s\n", formatState(m2))
}

// parseState validates and decodes the single positional state argument:
// 32 whitespace-separated decimal symbols, each in 0..=3, whose first
// quarter (symbols 0..4) equals its second quarter (symbols 4..8).
func parseState(arg string) ([]uint8, error) {
	tokens := strings.Fields(arg)
	if len(tokens) != 32 {
		return nil, fmt.Errorf("state must have exactly 32 symbols, got %d", len(tokens))
	}

	symbols := make([]uint8, 32)
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("symbol %d (%q) is not a number", i, tok)
		}
		if v < 0 || v > 3 {
			return nil, fmt.Errorf("symbol %d (%d) out of range, must be 0..3", i, v)
		}
		symbols[i] = uint8(v)
	}

	for i := 0; i < 4; i++ {
		if symbols[i] != symbols[i+4] {
			return nil, fmt.Errorf("state's first quarter (symbols 0..4) must equal its second quarter (symbols 4..8): symbol %d is %d, symbol %d is %d", i, symbols[i], i+4, symbols[i+4])
		}
	}

	return symbols, nil
}

func formatState(s uint64) string {
	symbols := bitpack.Unpack(s, 32)
	parts := make([]string, len(symbols))
	for i, sym := range symbols {
		parts[i] = strconv.Itoa(int(sym))
	}
	return strings.Join(parts, " ")
}
