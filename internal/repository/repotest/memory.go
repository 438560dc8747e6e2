// Package repotest provides in-memory repositories for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"sync"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/repository"
)

// Table is an in-memory archive table. List ignores the predicate but
// records it, along with the page, for assertions.
type Table[T any] struct {
	mu     sync.Mutex
	entity string
	idOf   func(T) int64

	rows      []T
	lastWhere *filter.Tree
	lastPage  domain.Page

	// Err, when set, is returned by every read.
	Err error
}

func newTable[T any](entity string, idOf func(T) int64) *Table[T] {
	return &Table[T]{entity: entity, idOf: idOf}
}

// Add appends rows to the table.
func (t *Table[T]) Add(rows ...T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rows...)
}

// Rows returns a copy of the stored rows.
func (t *Table[T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]T(nil), t.rows...)
}

// LastWhere returns the predicate passed to the latest List call.
func (t *Table[T]) LastWhere() *filter.Tree {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastWhere
}

// LastPage returns the page passed to the latest List call.
func (t *Table[T]) LastPage() domain.Page {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPage
}

func (t *Table[T]) List(ctx context.Context, where *filter.Tree, page domain.Page) (domain.ListResult[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastWhere, t.lastPage = where, page
	if t.Err != nil {
		return domain.ListResult[T]{}, t.Err
	}

	page = page.Normalize()
	total := len(t.rows)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	return domain.ListResult[T]{
		Items:  append([]T{}, t.rows[start:end]...),
		Total:  int64(total),
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

func (t *Table[T]) GetByID(ctx context.Context, id int64) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	if t.Err != nil {
		return zero, t.Err
	}
	for _, row := range t.rows {
		if t.idOf(row) == id {
			return row, nil
		}
	}
	return zero, domain.NotFound(t.entity, id)
}

func (t *Table[T]) GetByIDs(ctx context.Context, ids []int64) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []T{}
	for _, row := range t.rows {
		if want[t.idOf(row)] {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.idOf(out[i]) < t.idOf(out[j]) })
	return out, nil
}

func (t *Table[T]) where(keep func(T) bool) ([]T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	out := []T{}
	for _, row := range t.rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t *Table[T]) update(id int64, fn func(*T)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	for i := range t.rows {
		if t.idOf(t.rows[i]) == id {
			fn(&t.rows[i])
			return t.rows[i], nil
		}
	}
	return zero, domain.NotFound(t.entity, id)
}

// Store holds one table per entity plus the song-author links.
type Store struct {
	Songs        *Table[domain.Song]
	Authors      *Table[domain.Author]
	Recordings   *Table[domain.Recording]
	Events       *Table[domain.Event]
	Deeds        *Table[domain.Deed]
	Moments      *Table[domain.Moment]
	Translations *Table[domain.Translation]

	mu          sync.Mutex
	songAuthors [][2]int64

	// UpdateErr, when set, fails every write.
	UpdateErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Songs:        newTable("song", func(s domain.Song) int64 { return s.ID }),
		Authors:      newTable("author", func(a domain.Author) int64 { return a.ID }),
		Recordings:   newTable("recording", func(r domain.Recording) int64 { return r.ID }),
		Events:       newTable("event", func(e domain.Event) int64 { return e.ID }),
		Deeds:        newTable("deed", func(d domain.Deed) int64 { return d.ID }),
		Moments:      newTable("moment", func(m domain.Moment) int64 { return m.ID }),
		Translations: newTable("translation", func(t domain.Translation) int64 { return t.ID }),
	}
}

// LinkAuthor records that authorID wrote songID.
func (s *Store) LinkAuthor(songID, authorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.songAuthors = append(s.songAuthors, [2]int64{songID, authorID})
}

func (s *Store) linked(match func(link [2]int64) (int64, bool)) map[int64]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := map[int64]bool{}
	for _, link := range s.songAuthors {
		if id, ok := match(link); ok {
			ids[id] = true
		}
	}
	return ids
}

type songRepo struct {
	*Table[domain.Song]
	store *Store
}

func (s *Store) SongRepository() repository.SongRepository { return songRepo{s.Songs, s} }

func (r songRepo) ListByAuthor(ctx context.Context, authorID int64) ([]domain.Song, error) {
	ids := r.store.linked(func(l [2]int64) (int64, bool) { return l[0], l[1] == authorID })
	return r.where(func(song domain.Song) bool { return ids[song.ID] })
}

func (r songRepo) UpdateRefs(ctx context.Context, id int64, refs repository.SongRefs, actor string) (domain.Song, error) {
	if r.store.UpdateErr != nil {
		return domain.Song{}, r.store.UpdateErr
	}
	return r.update(id, func(song *domain.Song) {
		if refs.Lyrics != nil {
			song.RefLyrics = copyRef(refs.Lyrics)
		}
		if refs.Score != nil {
			song.RefScore = copyRef(refs.Score)
		}
		if refs.Tablature != nil {
			song.RefTablature = copyRef(refs.Tablature)
		}
		song.UpdatedBy = nullable(actor)
	})
}

type authorRepo struct {
	*Table[domain.Author]
	store *Store
}

func (s *Store) AuthorRepository() repository.AuthorRepository { return authorRepo{s.Authors, s} }

func (r authorRepo) ListBySong(ctx context.Context, songID int64) ([]domain.Author, error) {
	ids := r.store.linked(func(l [2]int64) (int64, bool) { return l[1], l[0] == songID })
	return r.where(func(a domain.Author) bool { return ids[a.ID] })
}

type recordingRepo struct {
	*Table[domain.Recording]
	store *Store
}

func (s *Store) RecordingRepository() repository.RecordingRepository {
	return recordingRepo{s.Recordings, s}
}

func (r recordingRepo) ListBySong(ctx context.Context, songID int64) ([]domain.Recording, error) {
	return r.where(func(rec domain.Recording) bool { return eq(rec.SongID, songID) })
}

func (r recordingRepo) ListByEvent(ctx context.Context, eventID int64) ([]domain.Recording, error) {
	return r.where(func(rec domain.Recording) bool { return eq(rec.EventID, eventID) })
}

func (r recordingRepo) ListByDeed(ctx context.Context, deedID int64) ([]domain.Recording, error) {
	return r.where(func(rec domain.Recording) bool { return eq(rec.DeedID, deedID) })
}

func (r recordingRepo) ListByMoment(ctx context.Context, momentID int64) ([]domain.Recording, error) {
	return r.where(func(rec domain.Recording) bool { return eq(rec.MomentID, momentID) })
}

func (r recordingRepo) UpdateAudioRef(ctx context.Context, id int64, ref string, actor string) (domain.Recording, error) {
	if r.store.UpdateErr != nil {
		return domain.Recording{}, r.store.UpdateErr
	}
	return r.update(id, func(rec *domain.Recording) {
		rec.RefAudio = copyRef(&ref)
		rec.UpdatedBy = nullable(actor)
	})
}

func (s *Store) EventRepository() repository.EventRepository   { return s.Events }
func (s *Store) DeedRepository() repository.DeedRepository     { return s.Deeds }
func (s *Store) MomentRepository() repository.MomentRepository { return s.Moments }

type translationRepo struct {
	*Table[domain.Translation]
	store *Store
}

func (s *Store) TranslationRepository() repository.TranslationRepository {
	return translationRepo{s.Translations, s}
}

func (r translationRepo) ListBySong(ctx context.Context, songID int64) ([]domain.Translation, error) {
	return r.where(func(t domain.Translation) bool { return t.SongID == songID })
}

func (r translationRepo) UpsertForSong(ctx context.Context, songID int64, items []repository.TranslationUpsert, actor string) ([]domain.Translation, error) {
	if r.store.UpdateErr != nil {
		return nil, r.store.UpdateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Translation, 0, len(items))
	for _, item := range items {
		idx := -1
		var maxID int64
		for i, t := range r.rows {
			maxID = max(maxID, t.ID)
			if t.SongID == songID && t.Language == item.Language {
				idx = i
			}
		}
		if idx < 0 {
			r.rows = append(r.rows, domain.Translation{ID: maxID + 1, Language: item.Language, SongID: songID})
			idx = len(r.rows) - 1
		}
		r.rows[idx].RefText = copyRef(&item.RefText)
		r.rows[idx].UpdatedBy = nullable(actor)
		out = append(out, r.rows[idx])
	}
	return out, nil
}

// Repositories bundles the store behind the repository interfaces.
type Repositories struct {
	Songs        repository.SongRepository
	Authors      repository.AuthorRepository
	Recordings   repository.RecordingRepository
	Events       repository.EventRepository
	Deeds        repository.DeedRepository
	Moments      repository.MomentRepository
	Translations repository.TranslationRepository
}

func (s *Store) Repositories() Repositories {
	return Repositories{
		Songs:        s.SongRepository(),
		Authors:      s.AuthorRepository(),
		Recordings:   s.RecordingRepository(),
		Events:       s.EventRepository(),
		Deeds:        s.DeedRepository(),
		Moments:      s.MomentRepository(),
		Translations: s.TranslationRepository(),
	}
}

func eq(ptr *int64, id int64) bool { return ptr != nil && *ptr == id }

func copyRef(ref *string) *string {
	v := *ref
	return &v
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
