// Package assets links uploaded files to archive rows and serves them back.
package assets

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/languages"
	"github.com/bisicus/segreteriacanti-api/internal/repository"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
	"github.com/bisicus/segreteriacanti-api/internal/storage"
)

// SongFileKind is one of the files a song can carry.
type SongFileKind string

const (
	Lyrics    SongFileKind = "lyrics"
	Score     SongFileKind = "score"
	Tablature SongFileKind = "tablature"
)

// ParseSongFileKind maps an upload field or download path segment to a kind.
func ParseSongFileKind(name string) (SongFileKind, bool) {
	switch strings.ToLower(name) {
	case "lyrics":
		return Lyrics, true
	case "score", "scores":
		return Score, true
	case "tablature", "tablatures":
		return Tablature, true
	}
	return "", false
}

func (k SongFileKind) folder() storage.Folder {
	switch k {
	case Score:
		return storage.FolderScores
	case Tablature:
		return storage.FolderTablatures
	default:
		return storage.FolderLyrics
	}
}

func (k SongFileKind) ref(song domain.Song) *string {
	switch k {
	case Score:
		return song.RefScore
	case Tablature:
		return song.RefTablature
	default:
		return song.RefLyrics
	}
}

// Upload is a received file waiting in the temp folder.
type Upload struct {
	Field    string
	Filename string
	MIME     string
	Path     string
}

// File is a stored file ready to be streamed.
type File struct {
	Path string
	Name string
}

// Service implements the upload and download workflows.
type Service struct {
	songs        repository.SongRepository
	recordings   repository.RecordingRepository
	translations repository.TranslationRepository
	store        *storage.Store
	separator    string
}

// Option configures a Service.
type Option func(*Service)

// WithFilenameSeparator sets the separator preceding the language in
// translation file names.
func WithFilenameSeparator(sep string) Option {
	return func(s *Service) {
		if sep != "" {
			s.separator = sep
		}
	}
}

// NewService creates a new assets service
func NewService(songs repository.SongRepository, recordings repository.RecordingRepository, translations repository.TranslationRepository, store *storage.Store, opts ...Option) *Service {
	s := &Service{
		songs:        songs,
		recordings:   recordings,
		translations: translations,
		store:        store,
		separator:    "_",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func actor(ctx context.Context) string {
	if a := reqctx.Actor(ctx); a != nil {
		return *a
	}
	return ""
}

// move is one planned placement of an upload.
type move struct {
	label    string
	upload   Upload
	folder   storage.Folder
	ref      string
	replaces string
	// stash holds the file previously stored under ref until commit.
	stash string
	moved bool
}

// moveAll places every upload concurrently. A file already stored under a
// planned ref is stashed first. When any placement fails the whole plan is
// rolled back.
func (s *Service) moveAll(ctx context.Context, plan []*move) error {
	logger := reqctx.Logger(ctx)

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	fail := func(m *move, msg string, err error) {
		logger.Error(msg,
			slog.String("file", m.label),
			slog.String("from", m.upload.Path),
			slog.String("ref", m.ref),
			slog.Any("error", err))
		mu.Lock()
		failed = append(failed, err)
		mu.Unlock()
	}
	for _, m := range plan {
		g.Go(func() error {
			stash, err := s.store.Stash(m.folder, m.ref)
			if err != nil {
				fail(m, "stashing current file failed", err)
				return nil
			}
			m.stash = stash
			if _, err := s.store.Move(m.upload.Path, m.folder, m.ref); err != nil {
				fail(m, "file move failed", err)
				return nil
			}
			m.moved = true
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return nil
	}
	s.rollback(ctx, plan)
	return domain.Internal(errors.Join(failed...), "failed to store uploaded files")
}

// rollback removes the files placed by plan and restores the stashed ones.
func (s *Service) rollback(ctx context.Context, plan []*move) {
	logger := reqctx.Logger(ctx)
	for _, m := range plan {
		if m.moved {
			if err := s.store.Remove(m.folder, m.ref); err != nil {
				logger.Error("rollback of moved file failed", slog.String("ref", m.ref), slog.Any("error", err))
			}
			m.moved = false
		}
		if m.stash == "" {
			continue
		}
		if err := s.store.Unstash(m.folder, m.stash, m.ref); err != nil {
			logger.Error("restoring stashed file failed",
				slog.String("ref", m.ref),
				slog.String("stash", m.stash),
				slog.Any("error", err))
		}
		m.stash = ""
	}
}

// commit drops the stashed files and deletes the files superseded by plan.
// Failures are logged only.
func (s *Service) commit(ctx context.Context, plan []*move) {
	logger := reqctx.Logger(ctx)
	for _, m := range plan {
		if m.stash != "" {
			if err := s.store.Remove(m.folder, m.stash); err != nil {
				logger.Error("failed to delete stashed file", slog.String("stash", m.stash), slog.Any("error", err))
			}
			m.stash = ""
		}
		if m.replaces == "" {
			continue
		}
		if err := s.store.Remove(m.folder, m.replaces); err != nil {
			logger.Error("failed to delete replaced file",
				slog.String("file", m.label),
				slog.String("ref", m.replaces),
				slog.Any("error", err))
			continue
		}
		logger.Debug("deleted replaced file", slog.String("file", m.label), slog.String("ref", m.replaces))
	}
}

// LinkSongFiles stores uploaded lyrics, score and tablature files for song id
// and points the song at them.
func (s *Service) LinkSongFiles(ctx context.Context, id int64, uploads map[SongFileKind]Upload) (domain.Song, error) {
	if len(uploads) == 0 {
		return domain.Song{}, domain.Validationf("files", "no file uploaded")
	}
	song, err := s.songs.GetByID(ctx, id)
	if err != nil {
		return domain.Song{}, err
	}
	logger := reqctx.Logger(ctx).With(slog.Int64("song_id", id))

	plan := make([]*move, 0, len(uploads))
	for _, kind := range []SongFileKind{Lyrics, Score, Tablature} {
		upload, ok := uploads[kind]
		if !ok {
			continue
		}
		m := &move{
			label:  string(kind),
			upload: upload,
			folder: kind.folder(),
			ref:    songRef(song.Title, kind, upload.MIME),
		}
		if current := kind.ref(song); current != nil && *current != m.ref {
			m.replaces = *current
		}
		logger.Debug("planned song file", slog.String("file", m.label), slog.String("mime", upload.MIME), slog.String("ref", m.ref))
		plan = append(plan, m)
	}
	if len(plan) != len(uploads) {
		return domain.Song{}, domain.NotImplementedf("unsupported song file")
	}

	if err := s.moveAll(ctx, plan); err != nil {
		return domain.Song{}, err
	}

	var refs repository.SongRefs
	for _, m := range plan {
		kind := SongFileKind(m.label)
		if current := kind.ref(song); current != nil && *current == m.ref {
			continue
		}
		ref := m.ref
		switch kind {
		case Lyrics:
			refs.Lyrics = &ref
		case Score:
			refs.Score = &ref
		case Tablature:
			refs.Tablature = &ref
		}
	}

	if refs.IsEmpty() {
		logger.Debug("song refs unchanged")
	} else {
		song, err = s.songs.UpdateRefs(ctx, id, refs, actor(ctx))
		if err != nil {
			s.rollback(ctx, plan)
			return domain.Song{}, err
		}
		logger.Info("song refs updated")
	}

	s.commit(ctx, plan)
	return song, nil
}

// recordingBase picks the stem of a recording audio file: the current ref
// without extension, else the sanitized song title, else a random UUID.
func (s *Service) recordingBase(ctx context.Context, rec domain.Recording) (string, error) {
	if rec.RefAudio != nil && *rec.RefAudio != "" {
		return stripExtension(*rec.RefAudio), nil
	}
	if rec.SongID != nil {
		song, err := s.songs.GetByID(ctx, *rec.SongID)
		if err != nil && !domain.IsNotFound(err) {
			return "", err
		}
		if err == nil {
			if base := sanitizeTitle(song.Title); base != "" {
				return base, nil
			}
		}
	}
	return uuid.NewString(), nil
}

// LinkRecordingAudio stores the uploaded audio of recording id.
func (s *Service) LinkRecordingAudio(ctx context.Context, id int64, upload Upload) (domain.Recording, error) {
	rec, err := s.recordings.GetByID(ctx, id)
	if err != nil {
		return domain.Recording{}, err
	}
	logger := reqctx.Logger(ctx).With(slog.Int64("recording_id", id))

	base, err := s.recordingBase(ctx, rec)
	if err != nil {
		return domain.Recording{}, err
	}
	m := &move{label: "audio", upload: upload, folder: storage.FolderRecordings, ref: storage.WithExtension(base, upload.MIME)}
	if rec.RefAudio != nil && *rec.RefAudio != m.ref {
		m.replaces = *rec.RefAudio
	}
	logger.Debug("planned audio file", slog.String("mime", upload.MIME), slog.String("ref", m.ref))

	plan := []*move{m}
	if err := s.moveAll(ctx, plan); err != nil {
		return domain.Recording{}, err
	}

	if rec.RefAudio != nil && *rec.RefAudio == m.ref {
		logger.Debug("audio ref left untouched", slog.String("ref", m.ref))
		s.commit(ctx, plan)
		return rec, nil
	}
	rec, err = s.recordings.UpdateAudioRef(ctx, id, m.ref, actor(ctx))
	if err != nil {
		s.rollback(ctx, plan)
		return domain.Recording{}, err
	}
	logger.Info("audio ref replaced", slog.String("ref", m.ref), slog.String("replaced", m.replaces))

	s.commit(ctx, plan)
	return rec, nil
}

// LanguageFromFilename reads the language suffix of an uploaded translation
// name, the segment after the last separator before the first dot, and
// resolves it to ISO 639-1.
func (s *Service) LanguageFromFilename(filename string) (string, error) {
	stem := filename
	if i := strings.Index(stem, "."); i >= 0 {
		stem = stem[:i]
	}
	parts := strings.Split(stem, s.separator)
	raw := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	if raw == "" {
		return "", domain.Validationf("translations", "filename '%s' does not contain a language", filename)
	}
	code, ok := languages.ISO6391(raw)
	if !ok {
		return "", domain.Validationf("translations", "'%s' is not a known language", raw)
	}
	return code, nil
}

// LinkTranslations stores uploaded translation texts of song id, one per
// language, creating or updating the translation rows.
func (s *Service) LinkTranslations(ctx context.Context, id int64, uploads []Upload) ([]domain.Translation, error) {
	if len(uploads) == 0 {
		return nil, domain.Validationf("translations", "no file uploaded")
	}
	song, err := s.songs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.translations.ListBySong(ctx, id)
	if err != nil {
		return nil, err
	}
	current := make(map[string]string, len(existing))
	for _, t := range existing {
		if t.RefText != nil {
			current[t.Language] = *t.RefText
		}
	}

	logger := reqctx.Logger(ctx).With(slog.Int64("song_id", id))
	plan := make([]*move, 0, len(uploads))
	seen := make(map[string]bool, len(uploads))
	for _, upload := range uploads {
		lang, err := s.LanguageFromFilename(upload.Filename)
		if err != nil {
			return nil, err
		}
		if seen[lang] {
			return nil, domain.Validationf("translations", "language '%s' uploaded twice", lang)
		}
		seen[lang] = true

		m := &move{label: lang, upload: upload, folder: storage.FolderTranslations, ref: translationRef(song.Title, lang, upload.MIME)}
		if old, ok := current[lang]; ok && old != m.ref {
			m.replaces = old
		}
		logger.Debug("planned translation file", slog.String("language", lang), slog.String("ref", m.ref))
		plan = append(plan, m)
	}

	if err := s.moveAll(ctx, plan); err != nil {
		return nil, err
	}

	items := make([]repository.TranslationUpsert, len(plan))
	for i, m := range plan {
		items[i] = repository.TranslationUpsert{Language: m.label, RefText: m.ref}
	}
	translations, err := s.translations.UpsertForSong(ctx, id, items, actor(ctx))
	if err != nil {
		s.rollback(ctx, plan)
		return nil, err
	}
	logger.Info("translations linked", slog.Int("count", len(translations)))

	s.commit(ctx, plan)
	return translations, nil
}

// stored resolves ref in folder. A nil ref is a missing resource; a ref to
// a file that does not exist is an internal fault.
func (s *Service) stored(ctx context.Context, folder storage.Folder, ref *string, attrs ...slog.Attr) (File, error) {
	if ref == nil || *ref == "" {
		return File{}, domain.NotFoundf("file not found")
	}
	path, err := s.store.Path(folder, *ref)
	if err != nil {
		return File{}, domain.Internal(err, "file not available")
	}
	if _, err := os.Stat(path); err != nil {
		args := []any{slog.String("path", path), slog.Any("error", err)}
		for _, a := range attrs {
			args = append(args, a)
		}
		reqctx.Logger(ctx).Error("referenced file is missing", args...)
		return File{}, domain.Internal(err, "file not available")
	}
	return File{Path: path, Name: *ref}, nil
}

// SongFile returns the stored file of kind for song id.
func (s *Service) SongFile(ctx context.Context, id int64, kind SongFileKind) (File, error) {
	song, err := s.songs.GetByID(ctx, id)
	if err != nil {
		return File{}, err
	}
	return s.stored(ctx, kind.folder(), kind.ref(song), slog.Int64("song_id", id), slog.String("file", string(kind)))
}

// RecordingAudio returns the audio file of recording id.
func (s *Service) RecordingAudio(ctx context.Context, id int64) (File, error) {
	rec, err := s.recordings.GetByID(ctx, id)
	if err != nil {
		return File{}, err
	}
	return s.stored(ctx, storage.FolderRecordings, rec.RefAudio, slog.Int64("recording_id", id))
}

// TranslationText returns the text file of translation id.
func (s *Service) TranslationText(ctx context.Context, id int64) (File, error) {
	tr, err := s.translations.GetByID(ctx, id)
	if err != nil {
		return File{}, err
	}
	return s.stored(ctx, storage.FolderTranslations, tr.RefText, slog.Int64("translation_id", id))
}
