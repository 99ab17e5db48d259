package formatter

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	m3uHeader = "#EXTM3U"
	m3uInfo   = "#EXTINF:"
)

// M3UEntry is one track of an extended m3u playlist. Path is relative to the playlist's directory.
type M3UEntry struct {
	Duration time.Duration
	Title    string
	Path     string
}

// WriteM3U writes entries as an extended m3u file, replacing any existing file.
func WriteM3U(path string, entries []M3UEntry) error {
	var buf bytes.Buffer
	buf.WriteString(m3uHeader + "\n")
	for _, e := range entries {
		secs := -1
		if e.Duration > 0 {
			secs = int(e.Duration.Round(time.Second) / time.Second)
		}
		fmt.Fprintf(&buf, "%s%d,%s\n", m3uInfo, secs, e.Title)
		buf.WriteString(filepath.ToSlash(e.Path) + "\n")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ParseM3U reads a plain or extended m3u file. Entries without #EXTINF have only a Path.
func ParseM3U(path string) ([]M3UEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	var (
		entries []M3UEntry
		pending *M3UEntry
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		switch {
		case line == "":
		case strings.HasPrefix(line, m3uInfo):
			e := parseExtInf(strings.TrimPrefix(line, m3uInfo))
			pending = &e
		case strings.HasPrefix(line, "#"):
		default:
			e := M3UEntry{}
			if pending != nil {
				e = *pending
				pending = nil
			}
			e.Path = filepath.FromSlash(line)
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return entries, nil
}

func parseExtInf(s string) M3UEntry {
	secs, title, _ := strings.Cut(s, ",")
	e := M3UEntry{Title: strings.TrimSpace(title)}
	// attributes such as tvg-id may follow the duration
	if fields := strings.Fields(secs); len(fields) > 0 {
		if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
			e.Duration = time.Duration(n) * time.Second
		}
	}
	return e
}
