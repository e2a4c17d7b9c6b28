package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/logging"
)

func (c *cli) runOps(args []string) int {
	fs := c.newFlagSet("ops")
	opType := fs.String("type", "", "only list operations of this type (encode, decode, xor, analyze)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(c.stderr, "ops takes no arguments")
		return 2
	}

	ops := cipher.ListOperations()
	if *opType != "" {
		ops = cipher.ListOperationsByType(cipher.OperationType(*opType))
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tREVERSE\tDESCRIPTION")
	for _, op := range ops {
		reverse := "-"
		if rev, ok := op.Reverse(); ok {
			reverse = rev.Name()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Name(), op.Type(), reverse, op.Description())
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(c.stderr, "write: %v\n", err)
		return 1
	}
	return 0
}

// parseOps reads a comma separated pipeline. Each step is an operation name
// optionally followed by ":param=value" pairs, for example
// "hex_decode,single_byte_xor:key=X".
func parseOps(list string) ([]cipher.OperationConfig, error) {
	var ops []cipher.OperationConfig
	for _, step := range strings.Split(list, ",") {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		parts := strings.Split(step, ":")
		op := cipher.OperationConfig{Name: parts[0]}
		for _, kv := range parts[1:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("operation %s: parameter %q is not key=value", op.Name, kv)
			}
			if op.Parameters == nil {
				op.Parameters = map[string]interface{}{}
			}
			op.Parameters[key] = value
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, errors.New("no operations given")
	}
	return ops, nil
}

func (c *cli) runPipeline(args []string) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	fs := c.newFlagSet("run")
	opSpec := fs.String("op", "", "comma separated operations, e.g. hex_decode,base64_encode")
	recipeName := fs.String("recipe", "", "name of a saved recipe to run")
	reverse := fs.Bool("reverse", false, "run the inverse pipeline")
	hexOut := fs.Bool("hex", false, "print the output as hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*opSpec == "") == (*recipeName == "") {
		fmt.Fprintln(c.stderr, "exactly one of --op or --recipe is required")
		return 2
	}

	var pipeline *cipher.Pipeline
	if *opSpec != "" {
		ops, err := parseOps(*opSpec)
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			return 2
		}
		pipeline = &cipher.Pipeline{Operations: ops, Reversible: *reverse}
	} else {
		rm, ok := c.recipes(cfg)
		if !ok {
			return 1
		}
		recipe, found := rm.GetRecipe(*recipeName)
		if !found {
			fmt.Fprintf(c.stderr, "recipe %q not found\n", *recipeName)
			return 1
		}
		p := recipe.Pipeline
		pipeline = &p
	}

	if *reverse {
		rev, err := pipeline.Reverse()
		if err != nil {
			fmt.Fprintf(c.stderr, "reverse pipeline: %v\n", err)
			return 1
		}
		pipeline = rev
	}

	in, ok := c.input(fs)
	if !ok {
		return 2
	}
	out, err := pipeline.Execute(context.Background(), in)
	if err != nil {
		fmt.Fprintf(c.stderr, "run pipeline: %v\n", err)
		return 1
	}
	if *hexOut {
		out = cipher.EncodeHex(out)
	}
	fmt.Fprintln(c.stdout, string(out))

	audit, ok := c.auditLogger(cfg)
	if !ok {
		return 1
	}
	defer audit.Close()
	names := make([]string, len(pipeline.Operations))
	for i, op := range pipeline.Operations {
		names[i] = op.Name
	}
	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventOperationExecuted,
		Metadata:  map[string]any{"operations": names, "recipe": *recipeName, "reverse": *reverse},
	})
	return 0
}

func (c *cli) runIdentify(args []string) int {
	fs := c.newFlagSet("identify")
	decode := fs.Bool("decode", false, "also show the output of every suggested operation")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	in, ok := c.input(fs)
	if !ok {
		return 2
	}
	ctx := context.Background()

	if *decode {
		results, err := cipher.DecodeAll(ctx, in)
		if err != nil {
			fmt.Fprintf(c.stderr, "identify: %v\n", err)
			return 1
		}
		if len(results) == 0 {
			fmt.Fprintln(c.stdout, "no encoding detected")
			return 0
		}
		for _, r := range results {
			if !r.Success {
				fmt.Fprintf(c.stdout, "%-16s %.2f  error: %s\n", r.Detection.Encoding, r.Detection.Confidence, r.Error)
				continue
			}
			fmt.Fprintf(c.stdout, "%-16s %.2f  %q\n", r.Detection.Encoding, r.Detection.Confidence, r.Decoded)
		}
		return 0
	}

	results, err := cipher.NewSmartDetector().Detect(ctx, in)
	if err != nil {
		fmt.Fprintf(c.stderr, "identify: %v\n", err)
		return 1
	}
	if len(results) == 0 {
		fmt.Fprintln(c.stdout, "no encoding detected")
		return 0
	}
	for _, r := range results {
		fmt.Fprintf(c.stdout, "%-16s %.2f  %-22s %s\n", r.Encoding, r.Confidence, r.Operation, r.Reasoning)
	}
	return 0
}
