// Command build_manifests turns the release files in a directory into signed
// update manifests for xorcrackctl self-update.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RowanDark/xorcrack/internal/env"
	"github.com/RowanDark/xorcrack/internal/updater"
)

func main() {
	configDir := flag.String("config", "packaging/updater", "directory of <channel>.yaml release files")
	outDir := flag.String("out", "out/updater", "output directory for manifests")
	flag.Parse()

	encoded, ok := env.Lookup("XORCRACK_UPDATER_SIGNING_KEY")
	if !ok {
		fatal(errors.New("XORCRACK_UPDATER_SIGNING_KEY is not set"))
	}
	key, err := updater.ParseSigningKey(encoded)
	if err != nil {
		fatal(err)
	}

	entries, err := os.ReadDir(*configDir)
	if err != nil {
		fatal(fmt.Errorf("read config dir: %w", err))
	}
	var releases []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".example.yaml") {
			continue
		}
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			releases = append(releases, filepath.Join(*configDir, name))
		}
	}
	sort.Strings(releases)
	if len(releases) == 0 {
		fatal(errors.New("no release files found"))
	}

	for _, file := range releases {
		manifest, err := updater.LoadRelease(file)
		if err != nil {
			fatal(err)
		}
		path, err := updater.Publish(*outDir, manifest, key)
		if err != nil {
			fatal(fmt.Errorf("%s: %w", file, err))
		}
		fmt.Printf("%s %s -> %s\n", manifest.Channel, manifest.Version, path)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
