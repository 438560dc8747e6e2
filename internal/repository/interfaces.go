package repository

import (
	"context"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
)

// Reader defines the read operations shared by every archive table
type Reader[T any] interface {
	List(ctx context.Context, where *filter.Tree, page domain.Page) (domain.ListResult[T], error)
	GetByID(ctx context.Context, id int64) (T, error)
	GetByIDs(ctx context.Context, ids []int64) ([]T, error)
}

// SongRefs holds new file references for a song; nil fields are left untouched.
type SongRefs struct {
	Lyrics    *string
	Score     *string
	Tablature *string
}

// IsEmpty reports whether no reference is set.
func (r SongRefs) IsEmpty() bool {
	return r.Lyrics == nil && r.Score == nil && r.Tablature == nil
}

// SongRepository defines the interface for song operations
type SongRepository interface {
	Reader[domain.Song]
	ListByAuthor(ctx context.Context, authorID int64) ([]domain.Song, error)
	UpdateRefs(ctx context.Context, id int64, refs SongRefs, actor string) (domain.Song, error)
}

// AuthorRepository defines the interface for author operations
type AuthorRepository interface {
	Reader[domain.Author]
	ListBySong(ctx context.Context, songID int64) ([]domain.Author, error)
}

// RecordingRepository defines the interface for recording operations
type RecordingRepository interface {
	Reader[domain.Recording]
	ListBySong(ctx context.Context, songID int64) ([]domain.Recording, error)
	ListByEvent(ctx context.Context, eventID int64) ([]domain.Recording, error)
	ListByDeed(ctx context.Context, deedID int64) ([]domain.Recording, error)
	ListByMoment(ctx context.Context, momentID int64) ([]domain.Recording, error)
	UpdateAudioRef(ctx context.Context, id int64, ref string, actor string) (domain.Recording, error)
}

// EventRepository defines the interface for event operations
type EventRepository interface {
	Reader[domain.Event]
}

// DeedRepository defines the interface for deed operations
type DeedRepository interface {
	Reader[domain.Deed]
}

// MomentRepository defines the interface for moment operations
type MomentRepository interface {
	Reader[domain.Moment]
}

// TranslationUpsert describes the text file linked to a song in one language.
type TranslationUpsert struct {
	Language string
	RefText  string
}

// TranslationRepository defines the interface for translation operations
type TranslationRepository interface {
	Reader[domain.Translation]
	ListBySong(ctx context.Context, songID int64) ([]domain.Translation, error)
	// UpsertForSong creates or updates one translation per language in a
	// single transaction.
	UpsertForSong(ctx context.Context, songID int64, items []TranslationUpsert, actor string) ([]domain.Translation, error)
}
