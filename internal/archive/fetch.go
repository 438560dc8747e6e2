package archive

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
)

// FetchSong returns a song with its authors, recordings and translations.
func (s *Service) FetchSong(ctx context.Context, id int64) (SongPublic, error) {
	song, err := s.repos.Songs.GetByID(ctx, id)
	if err != nil {
		return SongPublic{}, err
	}

	out := songToPublic(song)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		authors, err := s.repos.Authors.ListBySong(gctx, id)
		out.Authors = project(authors, authorToPublic)
		return err
	})
	g.Go(func() error {
		recordings, err := s.repos.Recordings.ListBySong(gctx, id)
		out.Recordings = project(recordings, recordingToPublic)
		return err
	})
	g.Go(func() error {
		translations, err := s.repos.Translations.ListBySong(gctx, id)
		out.Translations = project(translations, translationToPublic)
		return err
	})
	if err := g.Wait(); err != nil {
		return SongPublic{}, err
	}

	reqctx.Logger(ctx).Debug("fetched song",
		slog.Int64("song_id", id),
		slog.Int("authors", len(out.Authors)),
		slog.Int("recordings", len(out.Recordings)),
		slog.Int("translations", len(out.Translations)))
	return out, nil
}

// FetchAuthor returns an author with their songs.
func (s *Service) FetchAuthor(ctx context.Context, id int64) (AuthorPublic, error) {
	author, err := s.repos.Authors.GetByID(ctx, id)
	if err != nil {
		return AuthorPublic{}, err
	}
	songs, err := s.repos.Songs.ListByAuthor(ctx, id)
	if err != nil {
		return AuthorPublic{}, err
	}
	out := authorToPublic(author)
	out.Songs = project(songs, songToPublic)
	return out, nil
}

// FetchRecording returns a recording with its song, event, deed and moment.
func (s *Service) FetchRecording(ctx context.Context, id int64) (RecordingPublic, error) {
	rec, err := s.repos.Recordings.GetByID(ctx, id)
	if err != nil {
		return RecordingPublic{}, err
	}

	out := recordingToPublic(rec)
	g, gctx := errgroup.WithContext(ctx)
	if rec.SongID != nil {
		g.Go(func() error {
			song, err := s.repos.Songs.GetByID(gctx, *rec.SongID)
			if err != nil {
				return err
			}
			p := songToPublic(song)
			out.Song = &p
			return nil
		})
	}
	if rec.EventID != nil {
		g.Go(func() error {
			event, err := s.repos.Events.GetByID(gctx, *rec.EventID)
			if err != nil {
				return err
			}
			p := eventToPublic(event)
			out.Event = &p
			return nil
		})
	}
	if rec.DeedID != nil {
		g.Go(func() error {
			deed, err := s.repos.Deeds.GetByID(gctx, *rec.DeedID)
			if err != nil {
				return err
			}
			p := deedToPublic(deed)
			out.Deed = &p
			return nil
		})
	}
	if rec.MomentID != nil {
		g.Go(func() error {
			moment, err := s.repos.Moments.GetByID(gctx, *rec.MomentID)
			if err != nil {
				return err
			}
			p := momentToPublic(moment)
			out.Moment = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RecordingPublic{}, err
	}
	return out, nil
}

func (s *Service) FetchEvent(ctx context.Context, id int64) (EventPublic, error) {
	event, err := s.repos.Events.GetByID(ctx, id)
	if err != nil {
		return EventPublic{}, err
	}
	recordings, err := s.repos.Recordings.ListByEvent(ctx, id)
	if err != nil {
		return EventPublic{}, err
	}
	out := eventToPublic(event)
	out.Recordings = project(recordings, recordingToPublic)
	return out, nil
}

func (s *Service) FetchDeed(ctx context.Context, id int64) (DeedPublic, error) {
	deed, err := s.repos.Deeds.GetByID(ctx, id)
	if err != nil {
		return DeedPublic{}, err
	}
	recordings, err := s.repos.Recordings.ListByDeed(ctx, id)
	if err != nil {
		return DeedPublic{}, err
	}
	out := deedToPublic(deed)
	out.Recordings = project(recordings, recordingToPublic)
	return out, nil
}

func (s *Service) FetchMoment(ctx context.Context, id int64) (MomentPublic, error) {
	moment, err := s.repos.Moments.GetByID(ctx, id)
	if err != nil {
		return MomentPublic{}, err
	}
	recordings, err := s.repos.Recordings.ListByMoment(ctx, id)
	if err != nil {
		return MomentPublic{}, err
	}
	out := momentToPublic(moment)
	out.Recordings = project(recordings, recordingToPublic)
	return out, nil
}

// FetchTranslation returns a translation with its song.
func (s *Service) FetchTranslation(ctx context.Context, id int64) (TranslationPublic, error) {
	tr, err := s.repos.Translations.GetByID(ctx, id)
	if err != nil {
		return TranslationPublic{}, err
	}
	song, err := s.repos.Songs.GetByID(ctx, tr.SongID)
	if err != nil {
		return TranslationPublic{}, err
	}
	out := translationToPublic(tr)
	p := songToPublic(song)
	out.Song = &p
	return out, nil
}
