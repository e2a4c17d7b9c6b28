package updater

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	update "github.com/inconshreveable/go-update"

	"github.com/RowanDark/xorcrack/internal/logging"
)

const backupName = "xorcrackctl.previous"

// Client fetches signed manifests and swaps the running xorcrackctl binary,
// preferring a bsdiff delta when one matches the installed version.
type Client struct {
	Store          *Store
	HTTPClient     *http.Client
	BaseURL        string
	ExecPath       string // defaults to os.Executable
	CurrentVersion string
	Out            io.Writer
	Audit          *logging.AuditLogger
}

// UpdateOptions controls how an update should be performed.
type UpdateOptions struct {
	Channel        string
	PersistChannel bool
}

// Update installs the newest build on opts.Channel. An empty channel uses
// the stored preference.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) error {
	if c.Store == nil {
		return errors.New("nil state store")
	}
	st, err := c.Store.Load()
	if err != nil {
		return err
	}
	if opts.Channel == "" {
		opts.Channel = st.Channel
	}
	channel, err := NormalizeChannel(opts.Channel)
	if err != nil {
		return err
	}

	manifest, err := FetchManifest(ctx, c.httpClient(), c.BaseURL, channel)
	if err != nil {
		return err
	}

	current := c.version()
	if !isNewer(manifest.Version, current) || manifest.Version == st.LastAppliedVersion {
		fmt.Fprintf(c.out(), "xorcrackctl %s is already the newest build on the %s channel\n", current, channel)
		if opts.PersistChannel && st.Channel != channel {
			st.Channel = channel
			return c.Store.Save(st)
		}
		return nil
	}

	build, ok := manifest.BuildFor(runtime.GOOS, runtime.GOARCH)
	if !ok {
		return fmt.Errorf("no build available for %s/%s in manifest", runtime.GOOS, runtime.GOARCH)
	}
	checksum, err := DecodeChecksum(build.Full.SHA256)
	if err != nil {
		return fmt.Errorf("full artifact: %w", err)
	}

	target, err := c.target(checksum, filepath.Join(c.Store.Dir(), backupName))
	if err != nil {
		return err
	}

	var applyErr error
	usedDelta := false
	if build.Delta != nil && strings.TrimSpace(build.Delta.FromVersion) != "" &&
		(build.Delta.FromVersion == current || build.Delta.FromVersion == st.LastAppliedVersion) {
		usedDelta = true
		if applyErr = c.applyDelta(ctx, *build.Delta, target); applyErr != nil {
			fmt.Fprintf(c.out(), "delta update failed (%v); falling back to full download\n", applyErr)
			usedDelta = false
		}
	}
	if !usedDelta {
		applyErr = c.apply(ctx, build.Full.URL, target)
	}
	if applyErr != nil {
		// A failed beta update moves unattended jobs back to stable.
		if st.Channel == ChannelBeta {
			st.Channel = ChannelStable
			_ = c.Store.Save(st)
		}
		c.audit(logging.DecisionDeny, applyErr.Error(), map[string]any{"channel": channel, "version": manifest.Version})
		return applyErr
	}

	st.PreviousVersion = current
	st.LastAppliedVersion = manifest.Version
	st.BackupPath = target.OldSavePath
	st.LastAppliedAt = time.Now().UTC()
	if opts.PersistChannel {
		st.Channel = channel
	}
	if err := c.Store.Save(st); err != nil {
		return err
	}
	c.audit(logging.DecisionAllow, "update applied", map[string]any{
		"channel": channel,
		"from":    current,
		"to":      manifest.Version,
		"delta":   usedDelta,
	})
	fmt.Fprintf(c.out(), "updated xorcrackctl to %s on the %s channel\n", manifest.Version, channel)
	return nil
}

// Rollback restores the binary saved by the last update. With forceStable
// the channel preference is reset to stable.
func (c *Client) Rollback(ctx context.Context, forceStable bool) error {
	if c.Store == nil {
		return errors.New("nil state store")
	}
	st, err := c.Store.Load()
	if err != nil {
		return err
	}
	if st.BackupPath == "" {
		return errors.New("no rollback backup recorded")
	}
	backup, err := os.ReadFile(st.BackupPath)
	if err != nil {
		return fmt.Errorf("read backup binary: %w", err)
	}

	sum := sha256.Sum256(backup)
	target, err := c.target(sum[:], st.BackupPath)
	if err != nil {
		return err
	}
	if err := applyReader(bytes.NewReader(backup), target); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	st.LastAppliedAt = time.Now().UTC()
	st.LastAppliedVersion, st.PreviousVersion = st.PreviousVersion, st.LastAppliedVersion
	if forceStable {
		st.Channel = ChannelStable
	}
	if err := c.Store.Save(st); err != nil {
		return err
	}
	c.audit(logging.DecisionAllow, "rollback applied", map[string]any{"to": st.LastAppliedVersion})
	fmt.Fprintf(c.out(), "rolled back xorcrackctl to %s\n", st.LastAppliedVersion)
	return nil
}

// target prepares go-update options for replacing the executable.
func (c *Client) target(checksum []byte, backupPath string) (update.Options, error) {
	execPath := c.ExecPath
	if strings.TrimSpace(execPath) == "" {
		var err error
		if execPath, err = os.Executable(); err != nil {
			return update.Options{}, fmt.Errorf("determine executable path: %w", err)
		}
	}
	info, err := os.Stat(execPath)
	if err != nil {
		return update.Options{}, fmt.Errorf("stat executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(backupPath), 0o755); err != nil {
		return update.Options{}, fmt.Errorf("prepare backup dir: %w", err)
	}

	opts := update.Options{
		TargetPath:  execPath,
		TargetMode:  info.Mode(),
		Checksum:    checksum,
		Hash:        crypto.SHA256,
		OldSavePath: backupPath,
	}
	if err := opts.CheckPermissions(); err != nil {
		return update.Options{}, fmt.Errorf("insufficient permissions to update %s: %w", execPath, err)
	}
	return opts, nil
}

func (c *Client) applyDelta(ctx context.Context, delta Delta, opts update.Options) error {
	want, err := DecodeChecksum(delta.SHA256)
	if err != nil {
		return fmt.Errorf("delta: %w", err)
	}
	patch, err := fetch(ctx, c.httpClient(), delta.URL, c.userAgent())
	if err != nil {
		return fmt.Errorf("download delta: %w", err)
	}
	if got := sha256.Sum256(patch); !bytes.Equal(got[:], want) {
		return fmt.Errorf("delta checksum mismatch: got %x want %x", got, want)
	}
	opts.Patcher = update.NewBSDiffPatcher()
	return applyReader(bytes.NewReader(patch), opts)
}

func (c *Client) apply(ctx context.Context, artifactURL string, opts update.Options) error {
	data, err := fetch(ctx, c.httpClient(), artifactURL, c.userAgent())
	if err != nil {
		return fmt.Errorf("download full artifact: %w", err)
	}
	return applyReader(bytes.NewReader(data), opts)
}

func applyReader(r io.Reader, opts update.Options) error {
	if err := update.Apply(r, opts); err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("apply update: %v (restore failed: %v)", err, rerr)
		}
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

func (c *Client) audit(decision logging.Decision, reason string, meta map[string]any) {
	_ = c.Audit.Emit(logging.AuditEvent{
		EventType: logging.EventSelfUpdate,
		Decision:  decision,
		Reason:    reason,
		Metadata:  meta,
	})
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) out() io.Writer {
	if c.Out == nil {
		return io.Discard
	}
	return c.Out
}

func (c *Client) version() string {
	if v := strings.TrimSpace(c.CurrentVersion); v != "" {
		return v
	}
	return "dev"
}

func (c *Client) userAgent() string {
	return fmt.Sprintf("xorcrackctl/%s (%s/%s)", c.version(), runtime.GOOS, runtime.GOARCH)
}
