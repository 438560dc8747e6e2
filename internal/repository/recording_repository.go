package repository

import (
	"context"

	"github.com/bisicus/segreteriacanti-api/internal/db"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
)

type recordingRepository struct {
	table[domain.Recording]
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(exec db.DBTX) RecordingRepository {
	return &recordingRepository{table: newTable[domain.Recording](exec, recordingSchema)}
}

func (r *recordingRepository) ListBySong(ctx context.Context, songID int64) ([]domain.Recording, error) {
	return r.related(ctx, songSchema.relations["recordings"], songID)
}

func (r *recordingRepository) ListByEvent(ctx context.Context, eventID int64) ([]domain.Recording, error) {
	return r.related(ctx, eventSchema.relations["recordings"], eventID)
}

func (r *recordingRepository) ListByDeed(ctx context.Context, deedID int64) ([]domain.Recording, error) {
	return r.related(ctx, deedSchema.relations["recordings"], deedID)
}

func (r *recordingRepository) ListByMoment(ctx context.Context, momentID int64) ([]domain.Recording, error) {
	return r.related(ctx, momentSchema.relations["recordings"], momentID)
}

func (r *recordingRepository) UpdateAudioRef(ctx context.Context, id int64, ref string, actor string) (domain.Recording, error) {
	return r.update(ctx, id, map[string]any{"refAudio": ref}, actor)
}

type eventRepository struct {
	table[domain.Event]
}

// NewEventRepository creates a new event repository
func NewEventRepository(exec db.DBTX) EventRepository {
	return &eventRepository{table: newTable[domain.Event](exec, eventSchema)}
}

type deedRepository struct {
	table[domain.Deed]
}

// NewDeedRepository creates a new deed repository
func NewDeedRepository(exec db.DBTX) DeedRepository {
	return &deedRepository{table: newTable[domain.Deed](exec, deedSchema)}
}

type momentRepository struct {
	table[domain.Moment]
}

// NewMomentRepository creates a new moment repository
func NewMomentRepository(exec db.DBTX) MomentRepository {
	return &momentRepository{table: newTable[domain.Moment](exec, momentSchema)}
}
