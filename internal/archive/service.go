// Package archive serves the read side of the archive: filtered listings and
// single rows with their relations.
package archive

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/loader"
	"github.com/bisicus/segreteriacanti-api/internal/repository"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
)

// Repositories are the tables read by the service.
type Repositories struct {
	Songs        repository.SongRepository
	Authors      repository.AuthorRepository
	Recordings   repository.RecordingRepository
	Events       repository.EventRepository
	Deeds        repository.DeedRepository
	Moments      repository.MomentRepository
	Translations repository.TranslationRepository
}

// LoaderSources returns the repositories backing the request loaders.
func (r Repositories) LoaderSources() loader.Sources {
	return loader.Sources{Songs: r.Songs, Events: r.Events, Deeds: r.Deeds, Moments: r.Moments}
}

// ListParams is one listing request: raw filter inputs, paging and the
// relations to attach to each row.
type ListParams struct {
	Filters map[string]filter.Input
	Page    domain.Page
	Include []string
}

// Service answers archive read requests.
type Service struct {
	repos    Repositories
	compiler *filter.Compiler
}

// NewService creates a new archive service
func NewService(repos Repositories, compiler *filter.Compiler) *Service {
	return &Service{repos: repos, compiler: compiler}
}

// Compiler exposes the filter compiler shared with other services.
func (s *Service) Compiler() *filter.Compiler { return s.compiler }

func list[T, P any](ctx context.Context, c *filter.Compiler, set *filter.FilterSet, reader repository.Reader[T], params ListParams, fn func(T) P) (domain.ListResult[P], error) {
	where, err := c.Assemble(set, params.Filters)
	if err != nil {
		return domain.ListResult[P]{}, err
	}
	reqctx.Logger(ctx).Debug("list", slog.String("entity", set.Entity()), slog.Any("where", where))

	rows, err := reader.List(ctx, where, params.Page)
	if err != nil {
		return domain.ListResult[P]{}, err
	}
	return domain.ListResult[P]{
		Items:  project(rows.Items, fn),
		Total:  rows.Total,
		Limit:  rows.Limit,
		Offset: rows.Offset,
	}, nil
}

func (s *Service) ListSongs(ctx context.Context, params ListParams) (domain.ListResult[SongPublic], error) {
	if err := noInclude(params); err != nil {
		return domain.ListResult[SongPublic]{}, err
	}
	return list(ctx, s.compiler, filter.SongFilters, s.repos.Songs, params, songToPublic)
}

func (s *Service) ListAuthors(ctx context.Context, params ListParams) (domain.ListResult[AuthorPublic], error) {
	if err := noInclude(params); err != nil {
		return domain.ListResult[AuthorPublic]{}, err
	}
	return list(ctx, s.compiler, filter.AuthorFilters, s.repos.Authors, params, authorToPublic)
}

func (s *Service) ListEvents(ctx context.Context, params ListParams) (domain.ListResult[EventPublic], error) {
	if err := noInclude(params); err != nil {
		return domain.ListResult[EventPublic]{}, err
	}
	return list(ctx, s.compiler, filter.EventFilters, s.repos.Events, params, eventToPublic)
}

func (s *Service) ListDeeds(ctx context.Context, params ListParams) (domain.ListResult[DeedPublic], error) {
	if err := noInclude(params); err != nil {
		return domain.ListResult[DeedPublic]{}, err
	}
	return list(ctx, s.compiler, filter.DeedFilters, s.repos.Deeds, params, deedToPublic)
}

func (s *Service) ListMoments(ctx context.Context, params ListParams) (domain.ListResult[MomentPublic], error) {
	if err := noInclude(params); err != nil {
		return domain.ListResult[MomentPublic]{}, err
	}
	return list(ctx, s.compiler, filter.MomentFilters, s.repos.Moments, params, momentToPublic)
}

func (s *Service) ListTranslations(ctx context.Context, params ListParams) (domain.ListResult[TranslationPublic], error) {
	if err := noInclude(params); err != nil {
		return domain.ListResult[TranslationPublic]{}, err
	}
	return list(ctx, s.compiler, filter.TranslationFilters, s.repos.Translations, params, translationToPublic)
}

// ListRecordings lists recordings, attaching the relations named in
// params.Include through the request loaders.
func (s *Service) ListRecordings(ctx context.Context, params ListParams) (domain.ListResult[RecordingPublic], error) {
	include, err := parseRecordingInclude(params.Include)
	if err != nil {
		return domain.ListResult[RecordingPublic]{}, err
	}

	where, err := s.compiler.Assemble(filter.RecordingFilters, params.Filters)
	if err != nil {
		return domain.ListResult[RecordingPublic]{}, err
	}
	rows, err := s.repos.Recordings.List(ctx, where, params.Page)
	if err != nil {
		return domain.ListResult[RecordingPublic]{}, err
	}

	items, err := s.attachRecordings(ctx, rows.Items, include)
	if err != nil {
		return domain.ListResult[RecordingPublic]{}, err
	}
	return domain.ListResult[RecordingPublic]{Items: items, Total: rows.Total, Limit: rows.Limit, Offset: rows.Offset}, nil
}

// FilteredRecordings returns every recording matching filters with all of
// its to-one relations attached, in id order.
func (s *Service) FilteredRecordings(ctx context.Context, filters map[string]filter.Input) ([]RecordingPublic, error) {
	where, err := s.compiler.Assemble(filter.RecordingFilters, filters)
	if err != nil {
		return nil, err
	}

	var all []domain.Recording
	page := domain.Page{Limit: domain.MaxPageLimit}
	for {
		rows, err := s.repos.Recordings.List(ctx, where, page)
		if err != nil {
			return nil, err
		}
		all = append(all, rows.Items...)
		if len(rows.Items) < page.Limit || int64(len(all)) >= rows.Total {
			break
		}
		page.Offset += page.Limit
	}

	return s.attachRecordings(ctx, all, recordingInclude{song: true, event: true, deed: true, moment: true})
}

type recordingInclude struct {
	song, event, deed, moment bool
}

func (i recordingInclude) none() bool { return !i.song && !i.event && !i.deed && !i.moment }

func parseRecordingInclude(values []string) (recordingInclude, error) {
	var inc recordingInclude
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "":
			case "song":
				inc.song = true
			case "event":
				inc.event = true
			case "deed":
				inc.deed = true
			case "moment":
				inc.moment = true
			default:
				return inc, domain.Validationf("include", "'%s' cannot be included", name)
			}
		}
	}
	return inc, nil
}

func noInclude(params ListParams) error {
	for _, v := range params.Include {
		if strings.TrimSpace(v) != "" {
			return domain.Validationf("include", "'%s' cannot be included", v)
		}
	}
	return nil
}

func (s *Service) loaders(ctx context.Context) *loader.Loaders {
	if l := loader.FromContext(ctx); l != nil {
		return l
	}
	return loader.New(s.repos.LoaderSources())
}

func (s *Service) attachRecordings(ctx context.Context, rows []domain.Recording, include recordingInclude) ([]RecordingPublic, error) {
	items := project(rows, recordingToPublic)
	if include.none() || len(rows) == 0 {
		return items, nil
	}

	loaders := s.loaders(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := range rows {
		row, item := rows[i], &items[i]
		g.Go(func() error {
			if include.song {
				song, err := loader.Load[domain.Song](gctx, loaders.Songs, row.SongID)
				if err != nil {
					return err
				}
				if song != nil {
					p := songToPublic(*song)
					item.Song = &p
				}
			}
			if include.event {
				event, err := loader.Load[domain.Event](gctx, loaders.Events, row.EventID)
				if err != nil {
					return err
				}
				if event != nil {
					p := eventToPublic(*event)
					item.Event = &p
				}
			}
			if include.deed {
				deed, err := loader.Load[domain.Deed](gctx, loaders.Deeds, row.DeedID)
				if err != nil {
					return err
				}
				if deed != nil {
					p := deedToPublic(*deed)
					item.Deed = &p
				}
			}
			if include.moment {
				moment, err := loader.Load[domain.Moment](gctx, loaders.Moments, row.MomentID)
				if err != nil {
					return err
				}
				if moment != nil {
					p := momentToPublic(*moment)
					item.Moment = &p
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
