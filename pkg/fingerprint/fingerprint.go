// Package fingerprint computes content hashes of pipeline inputs so runs can be
// compared in the ledger.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Prefix marks a fingerprint stamped into an output file.
const Prefix = "sha256:"

// ErrNoStamp is returned when a stamp string carries no fingerprint.
var ErrNoStamp = errors.New("no fingerprint stamp found")

// Files hashes the base names and contents of paths. Order does not matter.
func Files(paths []string) (string, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := sha256.New()

	for _, p := range sorted {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", p, err)
		}

		io.WriteString(h, filepath.Base(p))
		h.Write([]byte{0})

		_, err = io.Copy(h, f)
		f.Close()

		if err != nil {
			return "", fmt.Errorf("failed to hash %s: %w", p, err)
		}

		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Stamp renders hash for embedding in file metadata.
func Stamp(hash string) string {
	return Prefix + hash
}

// ParseStamp extracts the hash from text containing a stamp.
func ParseStamp(text string) (string, error) {
	i := strings.Index(text, Prefix)
	if i < 0 {
		return "", ErrNoStamp
	}

	hash := text[i+len(Prefix):]
	if j := strings.IndexFunc(hash, func(r rune) bool { return !strings.ContainsRune("0123456789abcdef", r) }); j >= 0 {
		hash = hash[:j]
	}

	if len(hash) != sha256.Size*2 {
		return "", fmt.Errorf("%w: malformed hash %q", ErrNoStamp, hash)
	}

	return hash, nil
}

// Short returns the first 12 characters of hash for display.
func Short(hash string) string {
	if len(hash) <= 12 {
		return hash
	}

	return hash[:12]
}
