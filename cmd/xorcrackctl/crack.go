package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/xorcrack/internal/crack"
	"github.com/RowanDark/xorcrack/internal/logging"
)

func (c *cli) runCrack(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("crack")
	alphabetName := fs.String("alphabet", cfg.Alphabet, "key alphabet: default or full")
	top := fs.Int("top", 0, "also list the n best candidates")
	strict := fs.Bool("strict", cfg.Strict, "reject invalid hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *top < 0 {
		fmt.Fprintln(c.stderr, "--top must not be negative")
		return 2
	}
	in, ok := c.input(fs)
	if !ok {
		return 2
	}

	searcher, err := searcherFor(*alphabetName)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 2
	}
	ciphertext, err := decodeHex(in, *strict)
	if err != nil {
		fmt.Fprintf(c.stderr, "decode hex: %v\n", err)
		return 1
	}

	best := searcher.Crack(ciphertext)
	printCandidate(c, best)
	if *top > 0 {
		fmt.Fprintln(c.stdout)
		for i, cand := range searcher.Rank(ciphertext, *top) {
			fmt.Fprintf(c.stdout, "%3d  ", i+1)
			printCandidate(c, cand)
		}
	}

	audit, ok := c.auditLogger(cfg)
	if !ok {
		return 1
	}
	defer audit.Close()
	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventKeyRecovered,
		Metadata:  map[string]any{"key": int(best.Key), "score": best.Score, "alphabet": *alphabetName},
	})
	return 0
}

func (c *cli) runDetect(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("detect")
	alphabetName := fs.String("alphabet", cfg.Alphabet, "key alphabet: default or full")
	strict := fs.Bool("strict", cfg.Strict, "reject invalid hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(c.stderr, "detect takes at most one file argument")
		return 2
	}
	searcher, err := searcherFor(*alphabetName)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 2
	}

	src := c.stdin
	if name := fs.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(c.stderr, "open %s: %v\n", name, err)
			return 1
		}
		defer f.Close()
		src = f
	}

	var (
		lines   [][]byte
		lineNos []int
	)
	scanner := bufio.NewScanner(src)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ciphertext, err := decodeHex([]byte(line), *strict)
		if err != nil {
			fmt.Fprintf(c.stderr, "line %d: decode hex: %v\n", n, err)
			return 1
		}
		lines = append(lines, ciphertext)
		lineNos = append(lineNos, n)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(c.stderr, "read input: %v\n", err)
		return 1
	}

	index, best, err := searcher.Detect(lines)
	if err != nil {
		fmt.Fprintf(c.stderr, "detect: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "line %d: ", lineNos[index])
	printCandidate(c, best)
	return 0
}

func searcherFor(name string) (*crack.Searcher, error) {
	alphabet, err := crack.AlphabetByName(name)
	if err != nil {
		return nil, err
	}
	return crack.NewSearcher(crack.DefaultScorer, alphabet)
}

func printCandidate(c *cli, cand crack.Candidate) {
	score := fmt.Sprintf("%.6f", cand.Score)
	if cand.Score == crack.MaxScore {
		score = "max"
	}
	fmt.Fprintf(c.stdout, "key=0x%02x %q score=%s plaintext=%q\n", cand.Key, cand.Key, score, cand.Plaintext)
}
