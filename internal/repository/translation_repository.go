package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bisicus/segreteriacanti-api/internal/db"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
)

type translationRepository struct {
	table[domain.Translation]
}

// NewTranslationRepository creates a new translation repository
func NewTranslationRepository(exec db.DBTX) TranslationRepository {
	return &translationRepository{table: newTable[domain.Translation](exec, translationSchema)}
}

func (r *translationRepository) ListBySong(ctx context.Context, songID int64) ([]domain.Translation, error) {
	return r.related(ctx, songSchema.relations["translations"], songID)
}

func (r *translationRepository) UpsertForSong(ctx context.Context, songID int64, items []TranslationUpsert, actor string) ([]domain.Translation, error) {
	if len(items) == 0 {
		return []domain.Translation{}, nil
	}
	ctx, span := r.start(ctx, "upsert")
	defer span.End()

	query := fmt.Sprintf(`INSERT INTO translations AS t0 (song_id, language, ref_text, created_by, updated_by)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (song_id, language) DO UPDATE
SET ref_text = EXCLUDED.ref_text, updated_by = EXCLUDED.updated_by, updated_at = now()
RETURNING %s`, r.schema.selectList("t0"))

	result := make([]domain.Translation, 0, len(items))
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, item := range items {
			rows, err := tx.Query(ctx, query, songID, item.Language, item.RefText, nullable(actor))
			if err != nil {
				return err
			}
			translation, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[domain.Translation])
			if err != nil {
				return err
			}
			result = append(result, translation)
		}
		return nil
	})
	if err != nil {
		return nil, r.fail(span, err, "upsert")
	}
	return result, nil
}
