// Package hash computes content digests of downloaded artifacts.
//
// cloud-install records the SHA-256 of every charm tarball it stages and,
// when the settings document pins an expected digest, refuses to install a
// tarball that does not match.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrDigestMismatch is returned by Verify when the computed digest differs
// from the expected one.
var ErrDigestMismatch = errors.New("digest mismatch")

// Hasher provides an abstraction for file hashing operations.
type Hasher interface {
	// HashFile computes the hex digest of the file at the given path.
	HashFile(path string) (string, error)
}

// FileReader reads whole files. fsops.FS satisfies it.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct {
	files FileReader
}

// NewSHA256Hasher creates a SHA256Hasher that streams files from disk.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// NewFSHasher creates a SHA256Hasher that reads files through files.
func NewFSHasher(files FileReader) *SHA256Hasher {
	return &SHA256Hasher{files: files}
}

// HashFile computes the SHA-256 hash of the file at the given path.
func (h *SHA256Hasher) HashFile(path string) (string, error) {
	if h.files != nil {
		data, err := h.files.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify hashes path and compares it with expected. An empty expected
// digest accepts any content. The computed digest is always returned.
// Expected may carry a "sha256:" prefix and any letter case.
func Verify(h Hasher, path, expected string) (string, error) {
	got, err := h.HashFile(path)
	if err != nil {
		return "", err
	}

	if expected == "" {
		return got, nil
	}

	want := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(expected), "sha256:"))
	if got != want {
		return got, fmt.Errorf("%w: got %s, want %s", ErrDigestMismatch, got, want)
	}
	return got, nil
}
