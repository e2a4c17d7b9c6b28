package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RowanDark/xorcrack/internal/config"
	"github.com/RowanDark/xorcrack/internal/logging"
)

const productName = "xorcrack"
const cliBanner = productName + " CLI (xorcrackctl)"

// cli carries the streams of one invocation so commands can be tested
// without touching the process's stdio.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}

func (c *cli) run(args []string) int {
	if len(args) == 0 {
		c.usage()
		return 2
	}

	switch args[0] {
	case "hex2b64":
		return c.runHexToBase64(args[1:])
	case "xor":
		return c.runXor(args[1:])
	case "score":
		return c.runScore(args[1:])
	case "crack":
		return c.runCrack(args[1:])
	case "detect":
		return c.runDetect(args[1:])
	case "ops":
		return c.runOps(args[1:])
	case "run":
		return c.runPipeline(args[1:])
	case "identify":
		return c.runIdentify(args[1:])
	case "remote":
		return c.runRemote(args[1:])
	case "recipe":
		if len(args) < 2 {
			fmt.Fprintln(c.stderr, "recipe subcommand required")
			return 2
		}
		switch args[1] {
		case "save":
			return c.runRecipeSave(args[2:])
		case "list":
			return c.runRecipeList(args[2:])
		case "delete":
			return c.runRecipeDelete(args[2:])
		default:
			fmt.Fprintf(c.stderr, "unknown recipe subcommand: %s\n", args[1])
			return 2
		}
	case "config":
		if len(args) < 2 {
			fmt.Fprintln(c.stderr, "config subcommand required")
			return 2
		}
		switch args[1] {
		case "print":
			return c.runConfigPrint(args[2:])
		default:
			fmt.Fprintf(c.stderr, "unknown config subcommand: %s\n", args[1])
			return 2
		}
	case "version", "--version", "-version":
		return c.runVersion(args[1:])
	case "self-update":
		return c.runSelfUpdate(args[1:])
	case "help", "-h", "--help":
		c.usage()
		return 0
	default:
		fmt.Fprintf(c.stderr, "unknown subcommand: %s\n", args[0])
		c.usage()
		return 2
	}
}

func (c *cli) usage() {
	fmt.Fprintln(c.stderr, cliBanner)
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "usage: xorcrackctl <command> [flags] [args]")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "commands:")
	for _, line := range []string{
		"hex2b64 [hex]            convert hex to base64",
		"xor <hex> <hex>          XOR two hex strings",
		"score [text]             rate text against English letter frequencies",
		"crack [hex]              recover a single-byte XOR key",
		"detect [file]            find the single-byte XOR line among hex lines",
		"ops                      list pipeline operations",
		"run [input]              run a pipeline (-op or -recipe)",
		"identify [input]         guess the encoding of input",
		"remote <command> [args]  call a running xorcrackd",
		"recipe save|list|delete  manage saved pipelines",
		"config print             show the resolved configuration",
		"version                  print the version",
		"self-update              update or roll back this binary",
	} {
		fmt.Fprintln(c.stderr, "  "+line)
	}
}

// newFlagSet returns a flag set that reports errors to stderr instead of
// exiting.
func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// loadConfig resolves the configuration, printing failures to stderr.
func (c *cli) loadConfig() (config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "load config: %v\n", err)
		return config.Config{}, false
	}
	return cfg, true
}

// auditLogger opens the configured audit log. Without one, events are
// discarded.
func (c *cli) auditLogger(cfg config.Config) (*logging.AuditLogger, bool) {
	if cfg.AuditLog == "" {
		return nil, true
	}
	audit, err := logging.NewAuditLogger("xorcrackctl", logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
	if err != nil {
		fmt.Fprintf(c.stderr, "open audit log: %v\n", err)
		return nil, false
	}
	return audit, true
}

// input returns the single positional argument or, when there is none or it
// is "-", everything on stdin. Trailing newlines of stdin are trimmed.
func (c *cli) input(fs *flag.FlagSet) ([]byte, bool) {
	switch fs.NArg() {
	case 0:
	case 1:
		if fs.Arg(0) != "-" {
			return []byte(fs.Arg(0)), true
		}
	default:
		fmt.Fprintf(c.stderr, "%s takes at most one argument\n", fs.Name())
		return nil, false
	}

	data, err := io.ReadAll(c.stdin)
	if err != nil {
		fmt.Fprintf(c.stderr, "read stdin: %v\n", err)
		return nil, false
	}
	return []byte(strings.TrimRight(string(data), "\r\n")), true
}
