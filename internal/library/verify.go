package library

import (
	"context"

	"github.com/hbollon/go-edlib"

	"github.com/desertthunder/tunesync/internal/models"
	"github.com/desertthunder/tunesync/internal/shared"
)

// MatchThreshold is the Jaro-Winkler similarity a candidate needs on both name and artist to be accepted.
const MatchThreshold float32 = 0.85

// Similarity compares two strings after identity normalization. 1 means equal.
func Similarity(a, b string) float32 {
	a, b = shared.Normalize(a), shared.Normalize(b)
	if a == b {
		return 1
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return score
}

// candidateScore rates a backend candidate against the query's name and artist fields.
// The artist only counts when both sides have one.
func candidateScore(q Query, name, artist string) float32 {
	score := Similarity(q.Get(FieldName), name)
	if qa := q.Get(FieldArtist); qa != "" && artist != "" {
		score = min(score, Similarity(qa, artist))
	}
	return score
}

// best returns the index of the highest scoring candidate at or above [MatchThreshold], or -1.
func best(q Query, n int, candidate func(i int) (name, artist string)) int {
	idx, top := -1, MatchThreshold
	for i := 0; i < n; i++ {
		name, artist := candidate(i)
		if s := candidateScore(q, name, artist); s >= top {
			if idx < 0 || s > top {
				idx, top = i, s
			}
		}
	}
	return idx
}

// Verify resolves song and, when the answer is a close match for its name and main artist, merges the
// canonical fields into song. It reports whether song was verified. Only cancellation is returned as an error.
func (l *Library) Verify(ctx context.Context, song *models.Song) (bool, error) {
	res, err := l.ResolveSong(ctx, song)
	if err != nil || !res.Found() {
		return false, err
	}

	if candidateScore(NewQuery(EntitySong, FieldName, song.Name, FieldArtist, song.MainArtist()),
		res.Value.Name, res.Value.MainArtist()) < MatchThreshold {
		l.logger.Debug("rejected resolved song", "song", song.Credit(), "resolved", res.Value.Credit())
		return false, nil
	}

	song.Merge(res.Value)
	return true, nil
}
