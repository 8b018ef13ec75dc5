// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from plain-text files.
// A secrets directory holds one file per secret: the filename is the key name
// and the file contents (trimmed) are the value. A token file holds exactly
// one line, the bearer token.
//
// Supported key files: ads-api-token.
package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TokenKey is the secrets directory entry holding the ADS API token.
const TokenKey = "ads-api-token"

// MinTokenLength is the shortest token accepted as well-formed.
const MinTokenLength = 10

var (
	// ErrTokenMissing reports that no token source exists.
	ErrTokenMissing = errors.New("API token not found")

	// ErrTokenMalformed reports an empty or truncated token.
	ErrTokenMalformed = errors.New("invalid API token format")
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ReadToken returns the first line of the file at path, trimmed and
// validated with ValidateToken. Error messages name the path, never the
// token.
func ReadToken(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTokenMissing, path)
		}
		return "", fmt.Errorf("opening token file %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var line string
	if sc.Scan() {
		line = sc.Text()
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading token file %s: %w", path, err)
	}

	token := strings.TrimSpace(line)
	if err := ValidateToken(token); err != nil {
		return "", fmt.Errorf("token file %s: %w", path, err)
	}
	return token, nil
}

// ValidateToken rejects tokens that are empty, shorter than MinTokenLength
// or contain whitespace.
func ValidateToken(token string) error {
	if token == "" {
		return ErrTokenMissing
	}
	if len(token) < MinTokenLength || strings.ContainsAny(token, " \t\r\n") {
		return ErrTokenMalformed
	}
	return nil
}
