package tags

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
	mflac "github.com/mewkiz/flac"
)

const vorbisVendor = "tunesync"

func writeFLAC(path string, f Fields) error {
	file, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	cmt := flacvorbis.New()
	idx := -1
	for i, meta := range file.Meta {
		if meta.Type == goflac.VorbisComment {
			if existing, err := flacvorbis.ParseFromMetaDataBlock(*meta); err == nil {
				cmt = existing
			}
			idx = i
			break
		}
	}
	if cmt.Vendor == "" {
		cmt.Vendor = vorbisVendor
	}

	replaced := map[string]bool{
		flacvorbis.FIELD_TITLE:       true,
		flacvorbis.FIELD_ARTIST:      true,
		flacvorbis.FIELD_ALBUM:       true,
		flacvorbis.FIELD_TRACKNUMBER: true,
		CrossRefField:                true,
		LikedField:                   true,
	}
	kept := cmt.Comments[:0]
	for _, c := range cmt.Comments {
		key, _, _ := strings.Cut(c, "=")
		if !replaced[strings.ToUpper(key)] {
			kept = append(kept, c)
		}
	}
	cmt.Comments = kept

	add := func(key, value string) error {
		if value == "" {
			return nil
		}
		return cmt.Add(key, value)
	}
	for _, kv := range [][2]string{
		{flacvorbis.FIELD_TITLE, f.Title},
		{flacvorbis.FIELD_ALBUM, f.Album},
		{CrossRefField, f.CrossRef},
		{LikedField, likedValue(f.Liked)},
	} {
		if err := add(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", kv[0], err)
		}
	}
	for _, a := range f.Artists {
		if err := add(flacvorbis.FIELD_ARTIST, a); err != nil {
			return fmt.Errorf("failed to set artist: %w", err)
		}
	}
	if f.TrackNumber > 0 {
		if err := add(flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(f.TrackNumber)); err != nil {
			return fmt.Errorf("failed to set track number: %w", err)
		}
	}

	block := cmt.Marshal()
	if idx >= 0 {
		file.Meta[idx] = &block
	} else {
		file.Meta = append(file.Meta, &block)
	}

	if err := file.Save(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readFLACExtras(path string, f *Fields) error {
	file, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	for _, meta := range file.Meta {
		if meta.Type != goflac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return fmt.Errorf("failed to parse comments in %s: %w", filepath.Base(path), err)
		}
		if v, err := cmt.Get(CrossRefField); err == nil && len(v) > 0 {
			f.CrossRef = v[0]
		}
		if v, err := cmt.Get(LikedField); err == nil && len(v) > 0 {
			f.Liked = v[0] == "1"
		}
		if v, err := cmt.Get(flacvorbis.FIELD_ARTIST); err == nil && len(v) > 1 {
			f.Artists = v
		}
	}

	f.Duration = flacDuration(path)
	return nil
}

// flacDuration computes the length from STREAMINFO, or 0 when it cannot be read.
func flacDuration(path string) time.Duration {
	stream, err := mflac.Open(path)
	if err != nil {
		return 0
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return 0
	}
	return time.Duration(info.NSamples) * time.Second / time.Duration(info.SampleRate)
}
