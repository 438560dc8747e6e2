package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/repository/repotest"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
	"github.com/bisicus/segreteriacanti-api/internal/storage"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	store *storage.Store
	repos *repotest.Store
	svc   *Service
	root  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := storage.Config{
		Tmp:          filepath.Join(root, "tmp"),
		Lyrics:       filepath.Join(root, "lyrics"),
		Scores:       filepath.Join(root, "scores"),
		Tablatures:   filepath.Join(root, "tablatures"),
		Recordings:   filepath.Join(root, "recordings"),
		Translations: filepath.Join(root, "translations"),
	}
	store, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	repos := repotest.New()
	svc := NewService(repos.SongRepository(), repos.RecordingRepository(), repos.TranslationRepository(), store)
	return &fixture{store: store, repos: repos, svc: svc, root: root}
}

func (f *fixture) upload(t *testing.T, field, filename, mime, body string) Upload {
	t.Helper()
	path, err := f.store.SaveTemp(strings.NewReader(body))
	if err != nil {
		t.Fatalf("save temp: %v", err)
	}
	return Upload{Field: field, Filename: filename, MIME: mime, Path: path}
}

func (f *fixture) put(t *testing.T, folder, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.root, folder, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func (f *fixture) exists(folder, name string) bool {
	_, err := os.Stat(filepath.Join(f.root, folder, name))
	return err == nil
}

func (f *fixture) read(t *testing.T, folder, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, folder, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// files lists the names stored in folder.
func (f *fixture) files(t *testing.T, folder string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.root, folder))
	if err != nil {
		t.Fatalf("read dir %s: %v", folder, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSanitizeTitle(t *testing.T) {
	cases := map[string]string{
		"Ave Maria":        "ave_maria",
		"  Salve   Regina": "salve_regina",
		"AC/DC\tlive":      "ac_dc_live",
	}
	for in, want := range cases {
		if got := sanitizeTitle(in); got != want {
			t.Fatalf("sanitizeTitle(%q) = %q, want %q", in, got, want)
		}
	}
	if got := songRef("Ave Maria", Score, "application/pdf"); got != "ave_maria--score.pdf" {
		t.Fatalf("unexpected ref %q", got)
	}
	if got := translationRef("Ave Maria", "en", "application/x-unknown-type"); got != "ave_maria--en" {
		t.Fatalf("unexpected ref without extension %q", got)
	}
}

func TestLinkSongFilesReplacesOldRefs(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave Maria", RefLyrics: ptr("old-lyrics.txt"), RefScore: ptr("ave_maria--score.pdf")})
	f.put(t, "lyrics", "old-lyrics.txt", "old")
	f.put(t, "scores", "ave_maria--score.pdf", "old score")

	ctx := reqctx.WithActor(context.Background(), "editor")
	song, err := f.svc.LinkSongFiles(ctx, 1, map[SongFileKind]Upload{
		Lyrics: f.upload(t, "lyrics", "testo.pdf", "application/pdf", "new lyrics"),
		Score:  f.upload(t, "score", "spartito.pdf", "application/pdf", "new score"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if song.RefLyrics == nil || *song.RefLyrics != "ave_maria--lyrics.pdf" {
		t.Fatalf("unexpected lyrics ref %v", song.RefLyrics)
	}
	if song.UpdatedBy == nil || *song.UpdatedBy != "editor" {
		t.Fatalf("expected actor recorded, got %v", song.UpdatedBy)
	}
	if f.exists("lyrics", "old-lyrics.txt") {
		t.Fatalf("replaced lyrics file should be deleted")
	}
	if !f.exists("lyrics", "ave_maria--lyrics.pdf") {
		t.Fatalf("new lyrics file missing")
	}
	if got := f.read(t, "scores", "ave_maria--score.pdf"); got != "new score" {
		t.Fatalf("score with unchanged ref should be overwritten, got %q", got)
	}
	if got := f.files(t, "scores"); len(got) != 1 {
		t.Fatalf("expected only the new score, got %v", got)
	}
}

func TestLinkSongFilesNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.LinkSongFiles(context.Background(), 7, map[SongFileKind]Upload{
		Lyrics: f.upload(t, "lyrics", "a.txt", "text/plain", "x"),
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLinkSongFilesRollsBackOnMoveFailure(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave"})

	good := f.upload(t, "lyrics", "a.txt", "text/plain", "x")
	bad := Upload{Field: "score", Filename: "b.pdf", MIME: "application/pdf", Path: filepath.Join(f.root, "tmp", "missing")}

	_, err := f.svc.LinkSongFiles(context.Background(), 1, map[SongFileKind]Upload{Lyrics: good, Score: bad})
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if f.exists("lyrics", "ave--lyrics.txt") {
		t.Fatalf("moved file should be rolled back")
	}
	if song, _ := f.repos.Songs.GetByID(context.Background(), 1); song.RefLyrics != nil {
		t.Fatalf("song should not be updated")
	}
}

func TestLinkSongFilesRollbackRestoresUnchangedRef(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave", RefLyrics: ptr("ave--lyrics.txt")})
	f.put(t, "lyrics", "ave--lyrics.txt", "current lyrics")

	good := f.upload(t, "lyrics", "a.txt", "text/plain", "new lyrics")
	bad := Upload{Field: "score", Filename: "b.pdf", MIME: "application/pdf", Path: filepath.Join(f.root, "tmp", "missing")}

	_, err := f.svc.LinkSongFiles(context.Background(), 1, map[SongFileKind]Upload{Lyrics: good, Score: bad})
	if domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if got := f.read(t, "lyrics", "ave--lyrics.txt"); got != "current lyrics" {
		t.Fatalf("referenced file should be restored, got %q", got)
	}
	if got := f.files(t, "lyrics"); len(got) != 1 {
		t.Fatalf("expected no leftover files, got %v", got)
	}
	if _, err := f.svc.SongFile(context.Background(), 1, Lyrics); err != nil {
		t.Fatalf("download after rollback: %v", err)
	}
}

func TestLinkSongFilesUpdateFailureKeepsOldFiles(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave", RefLyrics: ptr("old.txt")})
	f.put(t, "lyrics", "old.txt", "old")
	boom := errors.New("boom")
	f.repos.UpdateErr = boom

	_, err := f.svc.LinkSongFiles(context.Background(), 1, map[SongFileKind]Upload{
		Lyrics: f.upload(t, "lyrics", "a.txt", "text/plain", "x"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !f.exists("lyrics", "old.txt") {
		t.Fatalf("old file must survive a failed update")
	}
	if f.exists("lyrics", "ave--lyrics.txt") {
		t.Fatalf("file of a failed update should be removed")
	}
}

func TestLinkTranslationsUpsertFailureRestoresFiles(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave"})
	f.repos.Translations.Add(domain.Translation{ID: 4, SongID: 1, Language: "en", RefText: ptr("ave--en.txt")})
	f.put(t, "translations", "ave--en.txt", "hail")
	boom := errors.New("boom")
	f.repos.UpdateErr = boom

	_, err := f.svc.LinkTranslations(context.Background(), 1, []Upload{
		f.upload(t, "translations", "ave_en.txt", "text/plain", "hail mary"),
		f.upload(t, "translations", "ave_it.txt", "text/plain", "ave"),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := f.read(t, "translations", "ave--en.txt"); got != "hail" {
		t.Fatalf("existing translation should be restored, got %q", got)
	}
	if got := f.files(t, "translations"); len(got) != 1 {
		t.Fatalf("expected only the original translation, got %v", got)
	}
}

func TestLinkRecordingAudioNaming(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave Maria"})
	f.repos.Recordings.Add(
		domain.Recording{ID: 10, SongID: ptr(int64(1))},
		domain.Recording{ID: 11, RefAudio: ptr("take_one.wav")},
		domain.Recording{ID: 12},
	)
	f.put(t, "recordings", "take_one.wav", "old")
	ctx := context.Background()

	rec, err := f.svc.LinkRecordingAudio(ctx, 10, f.upload(t, "audio", "x.mp3", "audio/mpeg", "a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *rec.RefAudio != "ave_maria.mp3" {
		t.Fatalf("expected title based ref, got %q", *rec.RefAudio)
	}

	rec, err = f.svc.LinkRecordingAudio(ctx, 11, f.upload(t, "audio", "x.mp3", "audio/mpeg", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *rec.RefAudio != "take_one.mp3" {
		t.Fatalf("expected ref reusing stem, got %q", *rec.RefAudio)
	}
	if f.exists("recordings", "take_one.wav") {
		t.Fatalf("old audio should be deleted")
	}

	rec, err = f.svc.LinkRecordingAudio(ctx, 12, f.upload(t, "audio", "x.ogg", "audio/ogg", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(*rec.RefAudio, ".ogg") || len(*rec.RefAudio) != len("00000000-0000-0000-0000-000000000000.ogg") {
		t.Fatalf("expected uuid based ref, got %q", *rec.RefAudio)
	}
}

func TestLanguageFromFilename(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"ave_maria_en.txt":     "en",
		"ave_maria_Italiano.pdf": "it",
		"canto_ENG.tar.gz":     "en",
	}
	for in, want := range cases {
		got, err := f.svc.LanguageFromFilename(in)
		if err != nil || got != want {
			t.Fatalf("LanguageFromFilename(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"ave_maria_.txt", "ave_maria_klingon.txt"} {
		if _, err := f.svc.LanguageFromFilename(bad); domain.KindOf(err) != domain.KindValidation {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}

	dash := NewService(nil, nil, nil, f.store, WithFilenameSeparator("-"))
	if got, err := dash.LanguageFromFilename("ave-maria-fr.txt"); err != nil || got != "fr" {
		t.Fatalf("custom separator: got %q %v", got, err)
	}
}

func TestLinkTranslationsUpserts(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave Maria"})
	f.repos.Translations.Add(domain.Translation{ID: 5, SongID: 1, Language: "en", RefText: ptr("old_en.txt")})
	f.put(t, "translations", "old_en.txt", "old")

	out, err := f.svc.LinkTranslations(context.Background(), 1, []Upload{
		f.upload(t, "translations", "ave_en.txt", "text/plain", "hail"),
		f.upload(t, "translations", "ave_latin.txt", "text/plain", "ave"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(out))
	}
	if out[0].ID != 5 || *out[0].RefText != "ave_maria--en.txt" {
		t.Fatalf("expected existing translation updated, got %+v", out[0])
	}
	if out[1].Language != "la" || *out[1].RefText != "ave_maria--la.txt" {
		t.Fatalf("expected new latin translation, got %+v", out[1])
	}
	if f.exists("translations", "old_en.txt") {
		t.Fatalf("replaced translation file should be deleted")
	}
}

func TestLinkTranslationsRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave"})

	_, err := f.svc.LinkTranslations(context.Background(), 1, []Upload{
		f.upload(t, "translations", "a_en.txt", "text/plain", "1"),
		f.upload(t, "translations", "b_english.txt", "text/plain", "2"),
	})
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDownloads(t *testing.T) {
	f := newFixture(t)
	f.repos.Songs.Add(domain.Song{ID: 1, Title: "Ave", RefLyrics: ptr("ave--lyrics.txt"), RefScore: ptr("gone.pdf")})
	f.repos.Recordings.Add(domain.Recording{ID: 2})
	f.repos.Translations.Add(domain.Translation{ID: 3, SongID: 1, Language: "en", RefText: ptr("ave--en.txt")})
	f.put(t, "lyrics", "ave--lyrics.txt", "text")
	f.put(t, "translations", "ave--en.txt", "text")
	ctx := context.Background()

	file, err := f.svc.SongFile(ctx, 1, Lyrics)
	if err != nil || file.Name != "ave--lyrics.txt" || file.Path != filepath.Join(f.root, "lyrics", "ave--lyrics.txt") {
		t.Fatalf("unexpected lyrics download %+v %v", file, err)
	}
	if _, err := f.svc.SongFile(ctx, 1, Tablature); !domain.IsNotFound(err) {
		t.Fatalf("missing ref should be not found, got %v", err)
	}
	if _, err := f.svc.SongFile(ctx, 1, Score); domain.KindOf(err) != domain.KindInternal {
		t.Fatalf("missing file should be internal, got %v", err)
	}
	if _, err := f.svc.RecordingAudio(ctx, 2); !domain.IsNotFound(err) {
		t.Fatalf("recording without audio should be not found, got %v", err)
	}
	if _, err := f.svc.RecordingAudio(ctx, 99); !domain.IsNotFound(err) {
		t.Fatalf("unknown recording should be not found, got %v", err)
	}
	if file, err := f.svc.TranslationText(ctx, 3); err != nil || file.Name != "ave--en.txt" {
		t.Fatalf("unexpected translation download %+v %v", file, err)
	}
}

func TestParseSongFileKind(t *testing.T) {
	for in, want := range map[string]SongFileKind{"lyrics": Lyrics, "score": Score, "scores": Score, "tablatures": Tablature} {
		if got, ok := ParseSongFileKind(in); !ok || got != want {
			t.Fatalf("ParseSongFileKind(%q) = %q %v", in, got, ok)
		}
	}
	if _, ok := ParseSongFileKind("audio"); ok {
		t.Fatalf("audio is not a song file")
	}
}
