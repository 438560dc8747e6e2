// Package loader batches related-row lookups made while serving one request.
package loader

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/graph-gophers/dataloader"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/repository"
)

const batchWait = 5 * time.Millisecond

// Loaders holds one batched loader per entity reachable from a recording.
type Loaders struct {
	Songs   *dataloader.Loader
	Events  *dataloader.Loader
	Deeds   *dataloader.Loader
	Moments *dataloader.Loader
}

// Sources are the repositories the loaders read from.
type Sources struct {
	Songs   repository.SongRepository
	Events  repository.EventRepository
	Deeds   repository.DeedRepository
	Moments repository.MomentRepository
}

// New creates fresh loaders. Loaders cache results, so create one set per request.
func New(src Sources) *Loaders {
	return &Loaders{
		Songs:   newLoader[domain.Song](src.Songs, func(s domain.Song) int64 { return s.ID }),
		Events:  newLoader[domain.Event](src.Events, func(e domain.Event) int64 { return e.ID }),
		Deeds:   newLoader[domain.Deed](src.Deeds, func(d domain.Deed) int64 { return d.ID }),
		Moments: newLoader[domain.Moment](src.Moments, func(m domain.Moment) int64 { return m.ID }),
	}
}

func newLoader[T any](repo repository.Reader[T], idOf func(T) int64) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				for j := range results {
					results[j] = &dataloader.Result{Error: errors.Wrapf(err, "invalid key %q", k.String())}
				}
				return results
			}
			ids[i] = id
		}

		rows, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[int64]T, len(rows))
		for _, row := range rows {
			byID[idOf(row)] = row
		}

		// Results follow key order; a missing row yields nil data.
		for i, id := range ids {
			if row, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: row}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	return dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(batchWait))
}

// Key renders an id as a loader key.
func Key(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

// Load resolves id through l. A nil id, or an id with no row, yields nil.
func Load[T any](ctx context.Context, l *dataloader.Loader, id *int64) (*T, error) {
	if id == nil {
		return nil, nil
	}
	data, err := l.Load(ctx, Key(*id))()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	row, ok := data.(T)
	if !ok {
		return nil, errors.Newf("loader returned %T", data)
	}
	return &row, nil
}

type ctxKey string

const loadersKey ctxKey = "loaders"

// WithLoaders stores l in ctx.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, l)
}

// FromContext retrieves the request loaders, if attached.
func FromContext(ctx context.Context) *Loaders {
	if l, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return l
	}
	return nil
}
