package main

import (
	"fmt"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/crack"
)

// decodeHex applies the lenient or strict hex policy.
func decodeHex(src []byte, strict bool) ([]byte, error) {
	if strict {
		return cipher.DecodeHexStrict(src)
	}
	return cipher.DecodeHex(src), nil
}

func (c *cli) runHexToBase64(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("hex2b64")
	strict := fs.Bool("strict", cfg.Strict, "reject invalid hex instead of decoding it leniently")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	in, ok := c.input(fs)
	if !ok {
		return 2
	}

	raw, err := decodeHex(in, *strict)
	if err != nil {
		fmt.Fprintf(c.stderr, "decode hex: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout, string(cipher.EncodeBase64(raw)))
	return 0
}

func (c *cli) runXor(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("xor")
	strict := fs.Bool("strict", cfg.Strict, "reject invalid hex and operands of different lengths")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(c.stderr, "xor requires two hex arguments")
		return 2
	}

	a, err := decodeHex([]byte(fs.Arg(0)), *strict)
	if err != nil {
		fmt.Fprintf(c.stderr, "first operand: %v\n", err)
		return 1
	}
	b, err := decodeHex([]byte(fs.Arg(1)), *strict)
	if err != nil {
		fmt.Fprintf(c.stderr, "second operand: %v\n", err)
		return 1
	}

	var out []byte
	if *strict {
		if out, err = cipher.XORStrict(a, b); err != nil {
			fmt.Fprintf(c.stderr, "xor: %v\n", err)
			return 1
		}
	} else {
		out = cipher.XOR(a, b)
	}
	fmt.Fprintln(c.stdout, string(cipher.EncodeHex(out)))
	return 0
}

func (c *cli) runScore(args []string) int {
	fs := c.newFlagSet("score")
	asHex := fs.Bool("hex", false, "score the bytes of hex input instead of the text itself")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	in, ok := c.input(fs)
	if !ok {
		return 2
	}
	if *asHex {
		in = cipher.DecodeHex(in)
	}

	score := crack.Score(in)
	if score == crack.MaxScore {
		fmt.Fprintln(c.stdout, "max (no letters)")
		return 0
	}
	fmt.Fprintf(c.stdout, "%.6f\n", score)
	return 0
}
