package main

import (
	"context"
	"fmt"

	"github.com/RowanDark/xorcrack/internal/env"
	"github.com/RowanDark/xorcrack/internal/updater"
)

func (c *cli) runSelfUpdate(args []string) int {
	if len(args) > 0 && args[0] == "channel" {
		return c.runSelfUpdateChannel(args[1:])
	}

	fs := c.newFlagSet("self-update")
	channelFlag := fs.String("channel", "", "update channel to use for this invocation (stable or beta)")
	rollback := fs.Bool("rollback", false, "restore the previous xorcrackctl binary")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(c.stderr, "self-update takes no positional arguments")
		return 2
	}

	channel := ""
	persist := true
	if *channelFlag != "" {
		normalized, err := updater.NormalizeChannel(*channelFlag)
		if err != nil {
			fmt.Fprintf(c.stderr, "invalid channel %q: %v\n", *channelFlag, err)
			return 2
		}
		channel = normalized
		persist = false
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return 1
	}
	store, err := updater.NewStore("")
	if err != nil {
		fmt.Fprintf(c.stderr, "prepare updater state: %v\n", err)
		return 1
	}
	audit, ok := c.auditLogger(cfg)
	if !ok {
		return 1
	}
	defer audit.Close()

	baseURL, _ := env.Lookup("XORCRACK_UPDATER_BASE_URL")
	client := &updater.Client{
		Store:          store,
		BaseURL:        baseURL,
		CurrentVersion: version,
		Out:            c.stdout,
		Audit:          audit,
	}

	ctx := context.Background()
	if *rollback {
		if err := client.Rollback(ctx, true); err != nil {
			fmt.Fprintf(c.stderr, "rollback failed: %v\n", err)
			return 1
		}
		return 0
	}

	if err := client.Update(ctx, updater.UpdateOptions{Channel: channel, PersistChannel: persist}); err != nil {
		fmt.Fprintf(c.stderr, "update failed: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runSelfUpdateChannel(args []string) int {
	fs := c.newFlagSet("self-update channel")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := updater.NewStore("")
	if err != nil {
		fmt.Fprintf(c.stderr, "prepare updater state: %v\n", err)
		return 1
	}
	st, err := store.Load()
	if err != nil {
		fmt.Fprintf(c.stderr, "load updater state: %v\n", err)
		return 1
	}

	switch fs.NArg() {
	case 0:
		fmt.Fprintln(c.stdout, st.Channel)
		return 0
	case 1:
		channel, err := updater.NormalizeChannel(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(c.stderr, "invalid channel %q: %v\n", fs.Arg(0), err)
			return 2
		}
		st.Channel = channel
		if err := store.Save(st); err != nil {
			fmt.Fprintf(c.stderr, "persist updater state: %v\n", err)
			return 1
		}
		fmt.Fprintf(c.stdout, "default channel set to %s\n", channel)
		return 0
	default:
		fmt.Fprintln(c.stderr, "self-update channel accepts at most one argument")
		return 2
	}
}
