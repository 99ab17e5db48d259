// package formatter writes manifests, sidecars and exports for albums, playlists and liked songs
//
// (m3u playlists, key=value album manifests, cover images, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// Listing is an exportable ordered set of songs.
type Listing struct {
	Name        string
	Description string
	Cover       string
	Songs       []*models.Song
}

// AlbumListing converts an album into a [Listing] titled "artist - name".
func AlbumListing(a *models.Album) Listing {
	return Listing{Name: a.Title(), Cover: a.Cover, Songs: a.Songs}
}

// PlaylistListing converts a playlist into a [Listing].
func PlaylistListing(p *models.Playlist) Listing {
	return Listing{Name: p.Name, Description: p.Description, Cover: p.Cover, Songs: p.Songs}
}

// FormatDuration renders d as m:ss, or h:mm:ss from an hour up.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ExportToCSV converts a Listing to CSV format with columns: Title, Artist, Album, Duration, IDs
func ExportToCSV(l Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artist", "Album", "Duration", "IDs"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range l.Songs {
		record := []string{
			s.Name,
			strings.Join(s.ArtistNames(), ", "),
			s.AlbumName,
			FormatDuration(s.Duration),
			formatIDs(s.IDs),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Listing to Markdown format with optional cover image
func ExportToMarkdown(l Listing, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", l.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if l.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", l.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(l.Songs))
	fmt.Fprintf(&buf, "**Duration**: %s\n\n", FormatDuration(totalDuration(l.Songs)))

	buf.WriteString("## Tracks\n\n")
	for i, s := range l.Songs {
		albumPart := ""
		if s.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", s.AlbumName)
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s]\n", i+1, s.Credit(), albumPart, FormatDuration(s.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Listing to plain text format
func ExportToText(l Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", l.Name)
	if l.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", l.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(l.Songs))

	for i, s := range l.Songs {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, s.Credit())
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the listing's songs.
func ExportToJSON(l Listing) ([]byte, error) {
	return shared.MarshalJSON(l.Songs, true)
}

// Format is an export format name.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// WriteExport renders l in format into dir, named after the listing. It returns the written path.
func WriteExport(l Listing, format Format, dir string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = ExportToCSV(l)
	case FormatMarkdown:
		data, err = ExportToMarkdown(l, "")
	case FormatText:
		data, err = ExportToText(l)
	case FormatJSON:
		data, err = ExportToJSON(l)
	default:
		return "", fmt.Errorf("%w: export format %q", shared.ErrUnsupported, format)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, shared.SafeName(l.Name)+"."+string(format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// SummaryTable renders rows under headers as a bordered table.
func SummaryTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func totalDuration(songs []*models.Song) time.Duration {
	var d time.Duration
	for _, s := range songs {
		d += s.Duration
	}
	return d
}

func formatIDs(ids models.ProviderIDs) string {
	parts := make([]string, 0, len(ids))
	for _, p := range []string{
		models.ProviderSpotify, models.ProviderYouTube, models.ProviderMBID,
		models.ProviderLastFM, models.ProviderISRC,
	} {
		if id := ids.Get(p); id != "" {
			parts = append(parts, p+":"+id)
		}
	}
	return strings.Join(parts, " ")
}
