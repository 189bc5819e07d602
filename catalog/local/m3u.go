// ABOUTME: Handles reading and writing M3U8 playlist files
// ABOUTME: Entries are resolved against the playlist directory and written back relative to it

package local

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadPlaylist reads an M3U8 playlist file and returns its entries as written
func ReadPlaylist(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}

	defer func() {
		_ = file.Close() // Explicitly ignore error for read-only file
	}()

	var entries []string

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entries = append(entries, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading playlist: %w", err)
	}

	return entries, nil
}

// ResolveEntries reads a playlist and resolves relative entries against its directory
func ResolveEntries(path string) ([]string, error) {
	entries, err := ReadPlaylist(path)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for i, entry := range entries {
		if !filepath.IsAbs(entry) {
			entries[i] = filepath.Join(baseDir, entry)
		}
	}

	return entries, nil
}

// WritePlaylist writes entries to an M3U8 playlist file
// Creates a backup (.bak) of the existing file before overwriting
func WritePlaylist(path string, entries []string) (err error) {
	// Create backup if file exists
	if _, statErr := os.Stat(path); statErr == nil {
		backupPath := path + ".bak"
		if err := os.Rename(path, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close playlist file: %w", closeErr)
		}
	}()

	writer := bufio.NewWriter(file)
	for _, entry := range entries {
		if _, err := writer.WriteString(entry + "\n"); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	return nil
}

// relativeTo rewrites absolute entries relative to the playlist directory when they live under it
func relativeTo(path string, entries []string) []string {
	baseDir := filepath.Dir(path)

	out := make([]string, len(entries))
	for i, entry := range entries {
		out[i] = entry
		if rel, err := filepath.Rel(baseDir, entry); err == nil && !strings.HasPrefix(rel, "..") {
			out[i] = rel
		}
	}

	return out
}
