package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProviderIDs(t *testing.T) {
	t.Run("Set allocates and ignores empty", func(t *testing.T) {
		var ids ProviderIDs
		ids.Set(ProviderSpotify, "")
		if ids != nil {
			t.Fatalf("expected nil map after empty set, got %v", ids)
		}
		ids.Set(ProviderSpotify, "abc")
		if ids.Get(ProviderSpotify) != "abc" {
			t.Errorf("expected abc, got %q", ids.Get(ProviderSpotify))
		}
	})

	t.Run("Union keeps existing on conflict", func(t *testing.T) {
		ids := ProviderIDs{ProviderSpotify: "a"}
		ids.Union(ProviderIDs{ProviderSpotify: "b", ProviderMBID: "m"})
		if ids[ProviderSpotify] != "a" || ids[ProviderMBID] != "m" {
			t.Errorf("unexpected union result %v", ids)
		}
	})

	t.Run("Compare ignores locators", func(t *testing.T) {
		a := ProviderIDs{ProviderPath: "/a.mp3"}
		b := ProviderIDs{ProviderPath: "/b.mp3"}
		if _, decided := a.Compare(b); decided {
			t.Error("path must not decide identity")
		}
	})
}

func TestCrossRef(t *testing.T) {
	s := &Song{Name: "x", IDs: ProviderIDs{ProviderMBID: "m1", ProviderYouTube: "yt1", ProviderPath: "/a"}}
	ref := s.CrossRef()
	if ref != "youtube:yt1" {
		t.Fatalf("expected youtube:yt1, got %q", ref)
	}

	provider, id, ok := ParseCrossRef(ref)
	if !ok || provider != ProviderYouTube || id != "yt1" {
		t.Errorf("unexpected parse %q %q %v", provider, id, ok)
	}

	for _, bad := range []string{"", "path:/a", "spotify:", "nocolon"} {
		if _, _, ok := ParseCrossRef(bad); ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}

	if (&Song{Name: "y"}).CrossRef() != "" {
		t.Error("expected empty cross ref without ids")
	}
}

func TestSongIdentity(t *testing.T) {
	tt := []struct {
		name string
		a, b *Song
		want bool
	}{
		{
			name: "normalized name and main artist",
			a:    NewSong("Halo", "Beyoncé"),
			b:    NewSong("  halo ", "BEYONCE"),
			want: true,
		},
		{
			name: "different main artist",
			a:    NewSong("Halo", "Beyoncé"),
			b:    NewSong("Halo", "Depeche Mode"),
			want: false,
		},
		{
			name: "shared id wins over names",
			a:    &Song{Name: "Halo", IDs: ProviderIDs{ProviderSpotify: "1"}},
			b:    &Song{Name: "Halo (Remastered)", IDs: ProviderIDs{ProviderSpotify: "1"}},
			want: true,
		},
		{
			name: "conflicting ids beat equal names",
			a:    &Song{Name: "Intro", Artists: []Artist{{Name: "X"}}, IDs: ProviderIDs{ProviderSpotify: "1"}},
			b:    &Song{Name: "Intro", Artists: []Artist{{Name: "X"}}, IDs: ProviderIDs{ProviderSpotify: "2"}},
			want: false,
		},
		{
			name: "ids from different providers fall back to names",
			a:    &Song{Name: "Intro", Artists: []Artist{{Name: "X"}}, IDs: ProviderIDs{ProviderSpotify: "1"}},
			b:    &Song{Name: "Intro", Artists: []Artist{{Name: "X"}}, IDs: ProviderIDs{ProviderYouTube: "v"}},
			want: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("Equal() = %v, want %v", got, tc.want)
			}
			if got := tc.b.Equal(tc.a); got != tc.want {
				t.Errorf("Equal() reversed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSongMerge(t *testing.T) {
	a := NewSong("Halo", "Beyoncé")
	a.IDs.Set(ProviderSpotify, "sp")

	b := NewSong("Halo", "beyonce", "Ryan Tedder")
	b.AlbumName = "I Am... Sasha Fierce"
	b.Duration = 261 * time.Second
	b.IDs.Set(ProviderSpotify, "other")
	b.IDs.Set(ProviderMBID, "mb")

	a.Merge(b)

	if got := a.ArtistNames(); len(got) != 2 || got[0] != "Beyoncé" || got[1] != "Ryan Tedder" {
		t.Errorf("unexpected artists %v", got)
	}
	if a.AlbumName != "I Am... Sasha Fierce" || a.Duration != 261*time.Second {
		t.Errorf("expected unset fields filled, got %+v", a)
	}
	if a.IDs.Get(ProviderSpotify) != "sp" || a.IDs.Get(ProviderMBID) != "mb" {
		t.Errorf("unexpected ids %v", a.IDs)
	}
	if a.Credit() != "Beyoncé, Ryan Tedder - Halo" {
		t.Errorf("unexpected credit %q", a.Credit())
	}
}

func TestTracklist(t *testing.T) {
	album := NewAlbum("Discovery", "Daft Punk")
	first := album.AddSong(NewSong("One More Time", "Daft Punk"))
	album.AddSong(NewSong("Aerodynamic", "Daft Punk"))

	dup := NewSong("one more time", "daft punk")
	dup.Duration = 320 * time.Second
	stored := album.AddSong(dup)

	if stored != first {
		t.Error("expected merge into the existing instance")
	}
	if album.Len() != 2 {
		t.Fatalf("expected 2 songs, got %d", album.Len())
	}
	if first.Duration != 320*time.Second || first.AlbumName != "Discovery" {
		t.Errorf("unexpected merged song %+v", first)
	}
	if album.Duration() != 320*time.Second {
		t.Errorf("unexpected album duration %v", album.Duration())
	}
	if !album.RemoveSong(NewSong("Aerodynamic", "Daft Punk")) || album.Contains(NewSong("Aerodynamic", "Daft Punk")) {
		t.Error("expected Aerodynamic removed")
	}

	album.SetCursor(ProviderSpotify, "50")
	if album.Cursor(ProviderSpotify) != "50" {
		t.Errorf("expected cursor 50, got %q", album.Cursor(ProviderSpotify))
	}
	album.SetCursor(ProviderSpotify, "")
	if album.Cursor(ProviderSpotify) != "" {
		t.Error("expected cursor cleared")
	}
}

func TestAlbumAndPlaylistMerge(t *testing.T) {
	t.Run("album identity by shared id", func(t *testing.T) {
		a := &Album{Name: "Discovery", IDs: ProviderIDs{ProviderMBID: "r1"}}
		b := &Album{Name: "Discovery (Deluxe)", IDs: ProviderIDs{ProviderMBID: "r1"}}
		if !a.Equal(b) {
			t.Error("expected shared mbid to match")
		}
	})

	t.Run("album merge preserves order and appends", func(t *testing.T) {
		a := NewAlbum("Discovery", "Daft Punk")
		a.AddSong(NewSong("One More Time", "Daft Punk"))
		b := NewAlbum("Discovery", "Daft Punk")
		b.Cover = "https://img/1.jpg"
		b.AddSong(NewSong("Digital Love", "Daft Punk"))
		b.AddSong(NewSong("One More Time", "Daft Punk"))
		b.SetCursor(ProviderSpotify, "20")

		a.Merge(b)

		if a.Len() != 2 || a.Songs[0].Name != "One More Time" || a.Songs[1].Name != "Digital Love" {
			t.Errorf("unexpected songs %v", a.Songs)
		}
		if a.Cover != "https://img/1.jpg" || a.Cursor(ProviderSpotify) != "20" {
			t.Errorf("expected cover and cursor adopted, got %+v", a)
		}
	})

	t.Run("playlist identity by name", func(t *testing.T) {
		a := NewPlaylist("Road Trip")
		b := NewPlaylist("road  TRIP")
		if !a.Equal(b) {
			t.Error("expected normalized names to match")
		}
	})
}

func TestEntityJSON(t *testing.T) {
	p := NewPlaylist("Mix")
	p.IDs.Set(ProviderSpotify, "pl")
	p.AddSong(&Song{Name: "A", Artists: []Artist{{Name: "X"}}, Duration: 3 * time.Second})
	p.SetCursor(ProviderSpotify, "100")

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Playlist
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !got.Equal(p) || got.Len() != 1 || got.Songs[0].Duration != 3*time.Second || got.Cursor(ProviderSpotify) != "100" {
		t.Errorf("unexpected decoded playlist %+v", got)
	}
}

func TestRunLifecycle(t *testing.T) {
	run := NewRun(RunMaterialize, "Albums/Daft Punk - Discovery")
	if err := run.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if run.Status() != RunRunning || run.FinishedAt() != nil {
		t.Fatalf("expected running run, got %s", run.Status())
	}

	run.SetCounts(3, 2, 1, 0)
	run.Finish(RunCompleted, nil)

	if run.Status() != RunCompleted || run.FinishedAt() == nil {
		t.Errorf("expected completed run with finish time")
	}
	if run.UpdatedAt().Before(run.CreatedAt()) {
		t.Error("finish time precedes start time")
	}

	if err := NewRun("bogus", "x").Validate(); err == nil {
		t.Error("expected invalid kind error")
	}
	if err := NewJobRecord(JobRecordParams{RunID: "r"}).Validate(); err == nil {
		t.Error("expected missing title error")
	}
}
