package archive

import "github.com/bisicus/segreteriacanti-api/internal/domain"

// SongPublic is a song as exposed by the API, with whatever relations were loaded.
type SongPublic struct {
	domain.Song
	Authors      []AuthorPublic      `json:"authors,omitempty"`
	Recordings   []RecordingPublic   `json:"recordings,omitempty"`
	Translations []TranslationPublic `json:"translations,omitempty"`
}

type AuthorPublic struct {
	domain.Author
	Songs []SongPublic `json:"songs,omitempty"`
}

// RecordingPublic hides the foreign keys of a recording and nests the rows
// they point to instead.
type RecordingPublic struct {
	ID         int64   `json:"id"`
	Comment    *string `json:"comment"`
	Evaluation *string `json:"evaluation"`
	RefAudio   *string `json:"refAudio"`
	domain.Audit

	Song   *SongPublic   `json:"song,omitempty"`
	Event  *EventPublic  `json:"event,omitempty"`
	Deed   *DeedPublic   `json:"deed,omitempty"`
	Moment *MomentPublic `json:"moment,omitempty"`
}

type EventPublic struct {
	domain.Event
	Recordings []RecordingPublic `json:"recordings,omitempty"`
}

type DeedPublic struct {
	domain.Deed
	Recordings []RecordingPublic `json:"recordings,omitempty"`
}

type MomentPublic struct {
	domain.Moment
	Recordings []RecordingPublic `json:"recordings,omitempty"`
}

type TranslationPublic struct {
	domain.Translation
	Song *SongPublic `json:"song,omitempty"`
}

func songToPublic(s domain.Song) SongPublic { return SongPublic{Song: s} }

func authorToPublic(a domain.Author) AuthorPublic { return AuthorPublic{Author: a} }

func recordingToPublic(r domain.Recording) RecordingPublic {
	return RecordingPublic{
		ID:         r.ID,
		Comment:    r.Comment,
		Evaluation: r.Evaluation,
		RefAudio:   r.RefAudio,
		Audit:      r.Audit,
	}
}

func eventToPublic(e domain.Event) EventPublic { return EventPublic{Event: e} }

func deedToPublic(d domain.Deed) DeedPublic { return DeedPublic{Deed: d} }

func momentToPublic(m domain.Moment) MomentPublic { return MomentPublic{Moment: m} }

func translationToPublic(t domain.Translation) TranslationPublic {
	return TranslationPublic{Translation: t}
}

func project[T, P any](rows []T, fn func(T) P) []P {
	out := make([]P, len(rows))
	for i, row := range rows {
		out[i] = fn(row)
	}
	return out
}
