package archive

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/repository/repotest"
)

func ptr[T any](v T) *T { return &v }

func newTestService(store *repotest.Store) *Service {
	r := store.Repositories()
	return NewService(Repositories{
		Songs:        r.Songs,
		Authors:      r.Authors,
		Recordings:   r.Recordings,
		Events:       r.Events,
		Deeds:        r.Deeds,
		Moments:      r.Moments,
		Translations: r.Translations,
	}, filter.New(filter.DefaultConfig()))
}

func seed() *repotest.Store {
	store := repotest.New()
	store.Songs.Add(
		domain.Song{ID: 1, Title: "Ave Maria", RefLyrics: ptr("ave_maria--lyrics.pdf")},
		domain.Song{ID: 2, Title: "Alleluia"},
	)
	store.Authors.Add(domain.Author{ID: 10, Name: "Frisina"})
	store.LinkAuthor(1, 10)
	store.Events.Add(domain.Event{ID: 20, Name: "Assisi"})
	store.Deeds.Add(domain.Deed{ID: 30, Type: "ingresso"})
	store.Moments.Add(domain.Moment{ID: 40, OccurredOn: "mattina"})
	store.Recordings.Add(
		domain.Recording{ID: 100, SongID: ptr(int64(1)), EventID: ptr(int64(20)), DeedID: ptr(int64(30)), MomentID: ptr(int64(40))},
		domain.Recording{ID: 101, SongID: ptr(int64(2))},
		domain.Recording{ID: 102},
	)
	store.Translations.Add(domain.Translation{ID: 50, Language: "en", SongID: 1, RefText: ptr("ave_maria--en.txt")})
	return store
}

func TestListSongsCompilesFilters(t *testing.T) {
	store := seed()
	svc := newTestService(store)

	res, err := svc.ListSongs(context.Background(), ListParams{
		Filters: map[string]filter.Input{
			"id":             filter.Scalar("5"),
			"has_recordings": filter.Scalar("true"),
		},
		Page: domain.Page{Limit: 10, Offset: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 || len(res.Items) != 2 || res.Limit != 10 {
		t.Fatalf("unexpected result: %+v", res)
	}

	where := store.Songs.LastWhere()
	cond, ok := where.Get("id")
	if !ok || cond != (filter.Equals{Value: int64(5)}) {
		t.Fatalf("expected id equals 5, got %#v", cond)
	}
	if _, ok := where.Get("recordings"); !ok {
		t.Fatalf("expected recordings presence filter")
	}
}

func TestListSongsValidationError(t *testing.T) {
	svc := newTestService(seed())

	_, err := svc.ListSongs(context.Background(), ListParams{
		Filters: map[string]filter.Input{"id": filter.List("or")},
	})
	derr, ok := domain.AsError(err)
	if !ok || derr.Kind != domain.KindValidation || !strings.Contains(derr.Message, "id") {
		t.Fatalf("expected validation error on id, got %v", err)
	}
}

func TestListRejectsInclude(t *testing.T) {
	svc := newTestService(seed())
	_, err := svc.ListAuthors(context.Background(), ListParams{Include: []string{"songs"}})
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListRecordingsInclude(t *testing.T) {
	svc := newTestService(seed())

	res, err := svc.ListRecordings(context.Background(), ListParams{Include: []string{"song,event", "moment"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 recordings, got %d", len(res.Items))
	}
	first := res.Items[0]
	if first.Song == nil || first.Song.Title != "Ave Maria" {
		t.Fatalf("expected song attached, got %+v", first.Song)
	}
	if first.Event == nil || first.Event.Name != "Assisi" {
		t.Fatalf("expected event attached, got %+v", first.Event)
	}
	if first.Moment == nil || first.Deed != nil {
		t.Fatalf("expected moment only, got deed=%v moment=%v", first.Deed, first.Moment)
	}
	if res.Items[2].Song != nil {
		t.Fatalf("recording without song should have none attached")
	}

	if _, err := svc.ListRecordings(context.Background(), ListParams{Include: []string{"authors"}}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error for unknown include, got %v", err)
	}
}

func TestRecordingPublicHidesForeignKeys(t *testing.T) {
	svc := newTestService(seed())

	rec, err := svc.FetchRecording(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Song == nil || rec.Event == nil || rec.Deed == nil || rec.Moment == nil {
		t.Fatalf("expected every relation attached: %+v", rec)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, key := range []string{`"songId"`, `"eventId"`, `"deedId"`, `"momentId"`} {
		if strings.Contains(body, key) {
			t.Fatalf("public recording leaks %s: %s", key, body)
		}
	}
	if !strings.Contains(body, `"song":{"id":1`) {
		t.Fatalf("expected nested song: %s", body)
	}
}

func TestFetchSongWithRelations(t *testing.T) {
	svc := newTestService(seed())

	song, err := svc.FetchSong(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(song.Authors) != 1 || song.Authors[0].Name != "Frisina" {
		t.Fatalf("unexpected authors: %+v", song.Authors)
	}
	if len(song.Recordings) != 1 || song.Recordings[0].ID != 100 {
		t.Fatalf("unexpected recordings: %+v", song.Recordings)
	}
	if len(song.Translations) != 1 || song.Translations[0].Language != "en" {
		t.Fatalf("unexpected translations: %+v", song.Translations)
	}
}

func TestFetchNotFound(t *testing.T) {
	svc := newTestService(seed())

	_, err := svc.FetchSong(context.Background(), 999)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.FetchEvent(context.Background(), 999); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFetchRelationErrorPropagates(t *testing.T) {
	store := seed()
	boom := errors.New("boom")
	store.Translations.Err = boom
	svc := newTestService(store)

	if _, err := svc.FetchSong(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestFetchOthers(t *testing.T) {
	svc := newTestService(seed())
	ctx := context.Background()

	author, err := svc.FetchAuthor(ctx, 10)
	if err != nil || len(author.Songs) != 1 || author.Songs[0].ID != 1 {
		t.Fatalf("unexpected author: %+v %v", author, err)
	}
	deed, err := svc.FetchDeed(ctx, 30)
	if err != nil || len(deed.Recordings) != 1 {
		t.Fatalf("unexpected deed: %+v %v", deed, err)
	}
	moment, err := svc.FetchMoment(ctx, 40)
	if err != nil || len(moment.Recordings) != 1 {
		t.Fatalf("unexpected moment: %+v %v", moment, err)
	}
	tr, err := svc.FetchTranslation(ctx, 50)
	if err != nil || tr.Song == nil || tr.Song.ID != 1 {
		t.Fatalf("unexpected translation: %+v %v", tr, err)
	}
}

func TestFilteredRecordingsAttachesEverything(t *testing.T) {
	svc := newTestService(seed())

	rows, err := svc.FilteredRecordings(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3, got %d", len(rows))
	}
	if rows[0].Deed == nil || rows[0].Deed.Type != "ingresso" {
		t.Fatalf("expected deed attached: %+v", rows[0])
	}
}
