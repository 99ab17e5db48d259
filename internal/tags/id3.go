package tags

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

const userTextFrame = "User defined text information frame"

func writeID3(path string, f Fields) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer t.Close()

	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	t.SetVersion(4)
	t.SetTitle(f.Title)
	t.SetArtist(joinArtists(f.Artists))
	t.SetAlbum(f.Album)

	if f.TrackNumber > 0 {
		t.AddTextFrame(t.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(f.TrackNumber))
	}
	if f.Duration > 0 {
		t.AddTextFrame("TLEN", id3v2.EncodingUTF8, strconv.FormatInt(f.Duration.Milliseconds(), 10))
	}

	t.DeleteFrames(t.CommonID(userTextFrame))
	for desc, value := range map[string]string{CrossRefField: f.CrossRef, LikedField: likedValue(f.Liked)} {
		if value == "" {
			continue
		}
		t.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: desc,
			Value:       value,
		})
	}

	if err := t.Save(); err != nil {
		return fmt.Errorf("failed to save tags to %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readID3Extras(path string, f *Fields) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer t.Close()

	for _, frame := range t.GetFrames(t.CommonID(userTextFrame)) {
		udf, ok := frame.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		switch udf.Description {
		case CrossRefField:
			f.CrossRef = udf.Value
		case LikedField:
			f.Liked = udf.Value == "1"
		}
	}

	if tlen := t.GetTextFrame("TLEN").Text; tlen != "" {
		f.Duration = parseMillis(tlen)
	}
	return nil
}
