package main

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

func (c *cli) runConfigPrint(args []string) int {
	fs := c.newFlagSet("config print")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(c.stderr, "config print takes no arguments")
		return 2
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		fmt.Fprintf(c.stderr, "encode config: %v\n", err)
		return 1
	}
	fmt.Fprint(c.stdout, string(out))
	return 0
}
