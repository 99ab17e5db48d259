package formatter

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/tunesync/internal/models"
)

// ManifestField is one key=value line of an album manifest.
type ManifestField struct {
	Key   string
	Value string
}

// AlbumManifest lists an album's fields and its tracks in order.
func AlbumManifest(a *models.Album) []ManifestField {
	fields := []ManifestField{
		{"album", a.Name},
		{"artist", a.MainArtist()},
		{"tracks", fmt.Sprint(a.Len())},
		{"duration", FormatDuration(a.Duration())},
	}
	for _, p := range []string{models.ProviderSpotify, models.ProviderYouTube, models.ProviderMBID, models.ProviderLastFM} {
		if id := a.IDs.Get(p); id != "" {
			fields = append(fields, ManifestField{p, id})
		}
	}
	for i, s := range a.Songs {
		fields = append(fields, ManifestField{fmt.Sprintf("track%02d", i+1), s.Credit()})
	}
	return fields
}

// WriteAlbumManifest writes fields as key=value lines, replacing any existing file.
// Line breaks inside values are flattened to spaces.
func WriteAlbumManifest(path string, fields []ManifestField) error {
	var buf bytes.Buffer
	for _, f := range fields {
		value := strings.Join(strings.Fields(f.Value), " ")
		fmt.Fprintf(&buf, "%s=%s\n", f.Key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadAlbumManifest parses a file written by [WriteAlbumManifest].
func ReadAlbumManifest(path string) ([]ManifestField, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	var fields []ManifestField
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok || key == "" {
			continue
		}
		fields = append(fields, ManifestField{Key: key, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return fields, nil
}
