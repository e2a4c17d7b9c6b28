package updater

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Release describes one channel release before artifacts are hashed. Paths
// are relative to the release file.
type Release struct {
	Channel string         `yaml:"channel"`
	Version string         `yaml:"version"`
	Builds  []ReleaseBuild `yaml:"builds"`
}

// ReleaseBuild is one OS/architecture entry of a Release.
type ReleaseBuild struct {
	OS    string          `yaml:"os"`
	Arch  string          `yaml:"arch"`
	Full  ReleaseArtifact `yaml:"full"`
	Delta *ReleaseDelta   `yaml:"delta"`
}

// ReleaseArtifact locates a binary. SHA256 wins over Path when both are set.
type ReleaseArtifact struct {
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
}

// ReleaseDelta is a bsdiff patch from FromVersion.
type ReleaseDelta struct {
	FromVersion     string `yaml:"from_version"`
	ReleaseArtifact `yaml:",inline"`
}

// LoadRelease reads a YAML release file and resolves it into a Manifest,
// hashing local artifacts as needed.
func LoadRelease(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read release: %w", err)
	}
	var rel Release
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&rel); err != nil {
		return Manifest{}, fmt.Errorf("parse release %s: %w", path, err)
	}
	return rel.Manifest(filepath.Dir(path))
}

// Manifest validates the release and hashes artifacts given by path relative
// to baseDir.
func (r Release) Manifest(baseDir string) (Manifest, error) {
	channel, err := NormalizeChannel(r.Channel)
	if err != nil {
		return Manifest{}, err
	}
	version := strings.TrimSpace(r.Version)
	if version == "" {
		return Manifest{}, errors.New("version is required")
	}
	if len(r.Builds) == 0 {
		return Manifest{}, errors.New("at least one build must be defined")
	}

	m := Manifest{Version: version, Channel: channel}
	for i, b := range r.Builds {
		if strings.TrimSpace(b.OS) == "" || strings.TrimSpace(b.Arch) == "" {
			return Manifest{}, fmt.Errorf("build %d missing os/arch", i)
		}
		full, err := b.Full.resolve(baseDir)
		if err != nil {
			return Manifest{}, fmt.Errorf("build %d full artifact: %w", i, err)
		}
		build := Build{OS: strings.TrimSpace(b.OS), Arch: strings.TrimSpace(b.Arch), Full: full}
		if b.Delta != nil {
			if strings.TrimSpace(b.Delta.FromVersion) == "" {
				return Manifest{}, fmt.Errorf("build %d delta: from_version is required", i)
			}
			art, err := b.Delta.ReleaseArtifact.resolve(baseDir)
			if err != nil {
				return Manifest{}, fmt.Errorf("build %d delta: %w", i, err)
			}
			build.Delta = &Delta{FromVersion: strings.TrimSpace(b.Delta.FromVersion), URL: art.URL, SHA256: art.SHA256}
		}
		m.Builds = append(m.Builds, build)
	}
	return m, nil
}

func (a ReleaseArtifact) resolve(baseDir string) (Artifact, error) {
	url := strings.TrimSpace(a.URL)
	if url == "" {
		return Artifact{}, errors.New("artifact url is required")
	}
	if sum := strings.TrimSpace(a.SHA256); sum != "" {
		if _, err := DecodeChecksum(sum); err != nil {
			return Artifact{}, err
		}
		return Artifact{URL: url, SHA256: strings.ToLower(sum)}, nil
	}

	p := strings.TrimSpace(a.Path)
	if p == "" {
		return Artifact{}, errors.New("artifact sha256 or path must be provided")
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	sum, err := fileSHA256(p)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{URL: url, SHA256: sum}, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Publish writes <outDir>/<channel>/manifest.json and its detached signature
// in the layout FetchManifest expects.
func Publish(outDir string, m Manifest, key ed25519.PrivateKey) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing key has invalid length %d", len(key))
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	manifestPath := filepath.Join(outDir, m.Channel, "manifest.json")
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		return "", fmt.Errorf("create manifest dir: %w", err)
	}
	if err := writeFileAtomic(manifestPath, data, 0o644); err != nil {
		return "", err
	}
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(key, data))
	if err := writeFileAtomic(manifestPath+".sig", []byte(sig), 0o644); err != nil {
		return "", err
	}
	return manifestPath, nil
}

// ParseSigningKey decodes a base64 ed25519 private key.
func ParseSigningKey(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing key has invalid length %d", len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
