package repository

import (
	"context"

	"github.com/bisicus/segreteriacanti-api/internal/db"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
)

type songRepository struct {
	table[domain.Song]
}

// NewSongRepository creates a new song repository
func NewSongRepository(exec db.DBTX) SongRepository {
	return &songRepository{table: newTable[domain.Song](exec, songSchema)}
}

func (r *songRepository) ListByAuthor(ctx context.Context, authorID int64) ([]domain.Song, error) {
	return r.related(ctx, authorSchema.relations["songs"], authorID)
}

func (r *songRepository) UpdateRefs(ctx context.Context, id int64, refs SongRefs, actor string) (domain.Song, error) {
	values := map[string]any{}
	if refs.Lyrics != nil {
		values["refLyrics"] = *refs.Lyrics
	}
	if refs.Score != nil {
		values["refScore"] = *refs.Score
	}
	if refs.Tablature != nil {
		values["refTablature"] = *refs.Tablature
	}
	if len(values) == 0 {
		return r.GetByID(ctx, id)
	}
	return r.update(ctx, id, values, actor)
}

type authorRepository struct {
	table[domain.Author]
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(exec db.DBTX) AuthorRepository {
	return &authorRepository{table: newTable[domain.Author](exec, authorSchema)}
}

func (r *authorRepository) ListBySong(ctx context.Context, songID int64) ([]domain.Author, error) {
	return r.related(ctx, songSchema.relations["authors"], songID)
}
