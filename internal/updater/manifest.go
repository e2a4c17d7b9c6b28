package updater

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/RowanDark/xorcrack/internal/cipher"
	"github.com/RowanDark/xorcrack/internal/env"
)

// DefaultBaseURL serves the signed release manifests.
const DefaultBaseURL = "https://updates.xorcrack.dev"

// releasePublicKey verifies production manifests. XORCRACK_UPDATER_PUBLIC_KEY
// replaces it, mainly for tests and private mirrors.
const releasePublicKey = "c7H1q0n22rnrTRPOKI9KQVUJd7Onvz+JYlpFN0FPN5o="

// Manifest lists the builds published on one channel.
type Manifest struct {
	Version string  `json:"version"`
	Channel string  `json:"channel"`
	Builds  []Build `json:"builds"`
}

// Build describes how to update one OS/architecture pair.
type Build struct {
	OS    string   `json:"os"`
	Arch  string   `json:"arch"`
	Full  Artifact `json:"full"`
	Delta *Delta   `json:"delta,omitempty"`
}

// Artifact is a complete binary and its hex SHA-256.
type Artifact struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Delta is a bsdiff patch from FromVersion to the manifest version.
type Delta struct {
	FromVersion string `json:"from_version"`
	URL         string `json:"url"`
	SHA256      string `json:"sha256"`
}

// BuildFor returns the build entry matching the platform.
func (m Manifest) BuildFor(goos, goarch string) (Build, bool) {
	for _, b := range m.Builds {
		if strings.EqualFold(b.OS, goos) && strings.EqualFold(b.Arch, goarch) {
			return b, true
		}
	}
	return Build{}, false
}

// DecodeManifest parses manifest JSON.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return Manifest{}, errors.New("manifest missing version")
	}
	if len(m.Builds) == 0 {
		return Manifest{}, errors.New("manifest missing builds")
	}
	return m, nil
}

// FetchManifest downloads the manifest for channel and its detached ed25519
// signature (base64, at manifest.json.sig) and verifies one against the other.
func FetchManifest(ctx context.Context, client *http.Client, baseURL, channel string) (Manifest, error) {
	channel, err := NormalizeChannel(channel)
	if err != nil {
		return Manifest{}, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	manifestURL, err := manifestURLFor(baseURL, channel)
	if err != nil {
		return Manifest{}, err
	}

	data, err := fetch(ctx, client, manifestURL, "")
	if err != nil {
		return Manifest{}, err
	}
	sigData, err := fetch(ctx, client, manifestURL+".sig", "")
	if err != nil {
		return Manifest{}, fmt.Errorf("download manifest signature: %w", err)
	}

	sig, err := cipher.DecodeBase64([]byte(strings.TrimSpace(string(sigData))))
	if err != nil {
		return Manifest{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return Manifest{}, fmt.Errorf("invalid signature length %d", len(sig))
	}
	pub, err := publicKey()
	if err != nil {
		return Manifest{}, err
	}
	if !ed25519.Verify(pub, data, sig) {
		return Manifest{}, errors.New("manifest signature verification failed")
	}

	return DecodeManifest(data)
}

func manifestURLFor(baseURL, channel string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	u.Path = path.Join(u.Path, channel, "manifest.json")
	return u.String(), nil
}

func fetch(ctx context.Context, client *http.Client, targetURL, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("download %s: unexpected status %d: %s", targetURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", targetURL, err)
	}
	return data, nil
}

func publicKey() (ed25519.PublicKey, error) {
	encoded := releasePublicKey
	source := "release public key"
	if override, ok := env.Lookup("XORCRACK_UPDATER_PUBLIC_KEY"); ok {
		encoded, source = override, "XORCRACK_UPDATER_PUBLIC_KEY"
	}
	key, err := cipher.DecodeBase64([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%s has invalid length %d", source, len(key))
	}
	return ed25519.PublicKey(key), nil
}

// DecodeChecksum decodes a hex SHA-256 checksum. Unlike the lenient hex
// decoder used for ciphertext, any malformed digit is an error.
func DecodeChecksum(sum string) ([]byte, error) {
	sum = strings.TrimSpace(sum)
	if sum == "" {
		return nil, errors.New("empty checksum")
	}
	b, err := cipher.DecodeHexStrict([]byte(sum))
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("checksum has %d bytes, want 32", len(b))
	}
	return b, nil
}
