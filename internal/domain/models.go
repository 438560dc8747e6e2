package domain

import "time"

// Audit carries the bookkeeping columns shared by every archive table.
type Audit struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy *string   `db:"created_by" json:"createdBy"`
	UpdatedBy *string   `db:"updated_by" json:"updatedBy"`
}

// Song is a piece in the archive. Ref columns hold file names relative to
// their storage folder.
type Song struct {
	ID           int64   `db:"id" json:"id"`
	Title        string  `db:"title" json:"title"`
	RefLyrics    *string `db:"ref_lyrics" json:"refLyrics"`
	RefScore     *string `db:"ref_score" json:"refScore"`
	RefTablature *string `db:"ref_tablature" json:"refTablature"`
	Audit
}

type Author struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Audit
}

// Recording is an audio take of a song, optionally tied to the event, deed
// and moment it was captured in.
type Recording struct {
	ID         int64   `db:"id" json:"id"`
	Comment    *string `db:"comment" json:"comment"`
	Evaluation *string `db:"evaluation" json:"evaluation"`
	RefAudio   *string `db:"ref_audio" json:"refAudio"`
	SongID     *int64  `db:"song_id" json:"songId"`
	EventID    *int64  `db:"event_id" json:"eventId"`
	DeedID     *int64  `db:"deed_id" json:"deedId"`
	MomentID   *int64  `db:"moment_id" json:"momentId"`
	Audit
}

type Event struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	StartDate *time.Time `db:"start_date" json:"startDate"`
	EndDate   *time.Time `db:"end_date" json:"endDate"`
	Audit
}

// Deed is the performance gesture a recording documents.
type Deed struct {
	ID   int64  `db:"id" json:"id"`
	Type string `db:"type" json:"type"`
	Audit
}

// Moment is the occasion of a recording.
type Moment struct {
	ID         int64  `db:"id" json:"id"`
	OccurredOn string `db:"occurred_on" json:"occurredOn"`
	Audit
}

// Translation is the text of a song in one ISO 639-1 language.
type Translation struct {
	ID       int64   `db:"id" json:"id"`
	Language string  `db:"language" json:"language"`
	RefText  *string `db:"ref_text" json:"refText"`
	SongID   int64   `db:"song_id" json:"songId"`
	Audit
}
