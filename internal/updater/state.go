package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/RowanDark/xorcrack/internal/env"
)

const (
	// ChannelStable is the default release channel.
	ChannelStable = "stable"
	// ChannelBeta exposes prerelease builds.
	ChannelBeta = "beta"
)

var validChannels = map[string]struct{}{
	ChannelStable: {},
	ChannelBeta:   {},
}

// State is the updater bookkeeping persisted between runs. It remembers the
// preferred channel and what is needed to roll back the last update.
type State struct {
	Channel            string    `json:"channel"`
	LastAppliedVersion string    `json:"last_applied_version,omitempty"`
	PreviousVersion    string    `json:"previous_version,omitempty"`
	BackupPath         string    `json:"backup_path,omitempty"`
	LastAppliedAt      time.Time `json:"last_applied_at,omitempty"`
}

// Store reads and writes State as JSON in a directory.
type Store struct {
	dir  string
	path string
	mu   sync.Mutex
}

// DefaultStateDir returns the per-user directory for updater state.
// XORCRACK_UPDATER_DIR overrides it.
func DefaultStateDir() (string, error) {
	if override, ok := env.Lookup("XORCRACK_UPDATER_DIR"); ok {
		return override, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "xorcrack"), nil
}

// NewStore constructs a Store rooted at dir, or at DefaultStateDir when dir
// is empty.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		var err error
		if dir, err = DefaultStateDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir %s: %w", dir, err)
	}
	return &Store{dir: dir, path: filepath.Join(dir, "updater.json")}, nil
}

// Dir returns the directory that backs the store.
func (s *Store) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Load returns the persisted state, or a stable-channel default when none
// has been saved. Unknown channels fall back to stable.
func (s *Store) Load() (State, error) {
	if s == nil {
		return State{}, errors.New("nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{Channel: ChannelStable}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read updater state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse updater state: %w", err)
	}
	if _, ok := validChannels[st.Channel]; !ok {
		st.Channel = ChannelStable
	}
	return st, nil
}

// Save persists st atomically by renaming a temp file over the old state.
func (s *Store) Save(st State) error {
	if s == nil {
		return errors.New("nil store")
	}
	if st.Channel == "" {
		st.Channel = ChannelStable
	}
	if _, ok := validChannels[st.Channel]; !ok {
		return fmt.Errorf("unknown channel %q", st.Channel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "updater-*.json")
	if err != nil {
		return fmt.Errorf("create temp updater state: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		tmp.Close()
		return fmt.Errorf("encode updater state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp updater state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("persist updater state: %w", err)
	}
	return nil
}

// NormalizeChannel lowercases channel and checks it; empty means stable.
func NormalizeChannel(channel string) (string, error) {
	c := strings.TrimSpace(strings.ToLower(channel))
	if c == "" {
		return ChannelStable, nil
	}
	if _, ok := validChannels[c]; !ok {
		return "", fmt.Errorf("unknown channel %q", channel)
	}
	return c, nil
}
