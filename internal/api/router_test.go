package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/bisicus/segreteriacanti-api/internal/archive"
	"github.com/bisicus/segreteriacanti-api/internal/assets"
	"github.com/bisicus/segreteriacanti-api/internal/config"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/export"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/repository/repotest"
	"github.com/bisicus/segreteriacanti-api/internal/respond"
	"github.com/bisicus/segreteriacanti-api/internal/storage"
)

func ptr[T any](v T) *T { return &v }

type testServer struct {
	handler http.Handler
	repos   *repotest.Store
	root    string
}

func newTestServer(t *testing.T, ping func(context.Context) error) *testServer {
	t.Helper()
	root := t.TempDir()
	store, err := storage.New(storage.Config{
		Tmp:          filepath.Join(root, "tmp"),
		Lyrics:       filepath.Join(root, "lyrics"),
		Scores:       filepath.Join(root, "scores"),
		Tablatures:   filepath.Join(root, "tablatures"),
		Recordings:   filepath.Join(root, "recordings"),
		Translations: filepath.Join(root, "translations"),
	})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	repos := repotest.New()
	repos.Songs.Add(domain.Song{ID: 1, Title: "Ave Maria", RefLyrics: ptr("ave_maria--lyrics.txt")})
	repos.Recordings.Add(domain.Recording{ID: 5, SongID: ptr(int64(1))})
	if err := os.WriteFile(filepath.Join(root, "lyrics", "ave_maria--lyrics.txt"), []byte("Ave Maria, gratia plena"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	r := repos.Repositories()
	archiveSvc := archive.NewService(archive.Repositories{
		Songs:        r.Songs,
		Authors:      r.Authors,
		Recordings:   r.Recordings,
		Events:       r.Events,
		Deeds:        r.Deeds,
		Moments:      r.Moments,
		Translations: r.Translations,
	}, filter.New(filter.DefaultConfig()))
	assetsSvc := assets.NewService(r.Songs, r.Recordings, r.Translations, store)

	mux := NewRouter(Deps{
		Archive: archiveSvc,
		Assets:  assetsSvc,
		Export:  export.NewService(archiveSvc),
		Store:   store,
		Uploads: config.Default().Uploads,
		Ping:    ping,
	})
	return &testServer{handler: mux, repos: repos, root: root}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var body respond.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestListSongsWithFiltersAndPaging(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/songs?title=%5EAve&title=%24Maria&limit=5&offset=0&sort=-title", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res domain.ListResult[archive.SongPublic]
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Total != 1 || res.Limit != 5 || res.Items[0].Title != "Ave Maria" {
		t.Fatalf("unexpected listing %+v", res)
	}

	page := s.repos.Songs.LastPage()
	if len(page.Sort) != 1 || page.Sort[0] != (domain.SortField{Property: "title", Direction: domain.SortDirectionDesc}) {
		t.Fatalf("unexpected sort %+v", page.Sort)
	}
	where := s.repos.Songs.LastWhere()
	if len(where.And()) != 1 {
		t.Fatalf("expected one AND group from the repeated title key, got %v", where.And())
	}
	if _, ok := where.Get("limit"); ok {
		t.Fatalf("reserved keys must not become filters")
	}
}

func TestListValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{
		"/api/v1/songs?id=abc",
		"/api/v1/songs?limit=ten",
		"/api/v1/songs?offset=-1",
		"/api/v1/songs?id[]=or",
		"/api/v1/recordings?include=authors",
	} {
		rec := s.do(httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
		if body := decodeError(t, rec); body.Kind != "validation" {
			t.Fatalf("%s: unexpected body %+v", target, body)
		}
	}
}

func TestFetchIDValidation(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{"/api/v1/songs/0", "/api/v1/songs/-4", "/api/v1/songs/abc"} {
		rec := s.do(httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/songs/42", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "song 42 not found" {
		t.Fatalf("unexpected body %+v", body)
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/recordings/5", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title": "Ave Maria"`) {
		t.Fatalf("expected recording with nested song, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDownloadLyrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/songs/1/lyrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "Ave Maria, gratia plena" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "ave_maria--lyrics.txt") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/songs/1/score", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing ref, got %d", rec.Code)
	}
	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/recordings/5/audio", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing audio ref, got %d", rec.Code)
	}
}

type part struct {
	field, filename, mime, body string
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.mime)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = io.WriteString(w, p.body)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadSongAssets(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(multipartRequest(t, "/api/v1/songs/1/assets",
		part{"score", "spartito.pdf", "application/pdf", "%PDF"},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	song, _ := s.repos.Songs.GetByID(context.Background(), 1)
	if song.RefScore == nil || *song.RefScore != "ave_maria--score.pdf" {
		t.Fatalf("unexpected score ref %v", song.RefScore)
	}
	if _, err := os.Stat(filepath.Join(s.root, "scores", "ave_maria--score.pdf")); err != nil {
		t.Fatalf("score not stored: %v", err)
	}
	tmp, _ := os.ReadDir(filepath.Join(s.root, "tmp"))
	if len(tmp) != 0 {
		t.Fatalf("temp folder should be empty, found %d entries", len(tmp))
	}
}

func TestUploadRejectsMimeAndFields(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(multipartRequest(t, "/api/v1/songs/1/assets",
		part{"lyrics", "virus.exe", "application/x-msdownload", "MZ"},
	))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rejected mime, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Field != "lyrics" {
		t.Fatalf("expected lyrics field, got %+v", body)
	}

	rec = s.do(multipartRequest(t, "/api/v1/songs/1/assets",
		part{"cover", "cover.png", "image/png", "png"},
	))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}

	rec = s.do(multipartRequest(t, "/api/v1/recordings/5/assets",
		part{"audio", "a.mp3", "audio/mpeg", "1"},
		part{"audio", "b.mp3", "audio/mpeg", "2"},
	))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too many files, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/songs/1/assets", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if rec := s.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non multipart body, got %d", rec.Code)
	}

	tmp, _ := os.ReadDir(filepath.Join(s.root, "tmp"))
	if len(tmp) != 0 {
		t.Fatalf("temp folder should be empty, found %d entries", len(tmp))
	}
}

func TestUploadRecordingAudioAndTranslations(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(multipartRequest(t, "/api/v1/recordings/5/assets",
		part{"audio", "take.mp3", "audio/mpeg", "ID3"},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"refAudio": "ave_maria.mp3"`) {
		t.Fatalf("unexpected recording body %s", rec.Body.String())
	}

	rec = s.do(multipartRequest(t, "/api/v1/songs/1/translations",
		part{"translations", "ave_en.txt", "text/plain", "Hail Mary"},
		part{"translations", "ave_fr.txt", "text/plain; charset=utf-8", "Je vous salue"},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(s.repos.Translations.Rows()); got != 2 {
		t.Fatalf("expected 2 translations, got %d", got)
	}

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/translations/1/text", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "Hail Mary" {
		t.Fatalf("unexpected translation download %d %q", rec.Code, rec.Body.String())
	}
}

func TestExportRoute(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/recordings/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Fatalf("expected zip container")
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, func(context.Context) error { return nil })
	if rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	s = newTestServer(t, func(context.Context) error { return errors.New("down") })
	if rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSortParam(t *testing.T) {
	got := sortParam([]string{"title,-id", " +name "})
	want := []domain.SortField{
		{Property: "title", Direction: domain.SortDirectionAsc},
		{Property: "id", Direction: domain.SortDirectionDesc},
		{Property: "name", Direction: domain.SortDirectionAsc},
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected sort %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
