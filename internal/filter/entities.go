package filter

// Scalar vocabularies per entity. Relation rules of other entities point into
// these maps, so they hold no relation traversals themselves.
var (
	songFields = map[string]Rule{
		"id":             NumberField("id"),
		"title":          TextField("title"),
		"createdat":      DateField("createdAt"),
		"updatedat":      DateField("updatedAt"),
		"has_lyrics":     BoolField("refLyrics"),
		"has_score":      BoolField("refScore"),
		"has_tablatures": BoolField("refTablature"),
	}

	authorFields = map[string]Rule{
		"id":        NumberField("id"),
		"name":      TextField("name"),
		"createdat": DateField("createdAt"),
		"updatedat": DateField("updatedAt"),
	}

	recordingFields = map[string]Rule{
		"id":         NumberField("id"),
		"comment":    TextField("comment"),
		"evaluation": TextField("evaluation"),
		"createdat":  DateField("createdAt"),
		"updatedat":  DateField("updatedAt"),
		"has_audio":  BoolField("refAudio"),
	}

	eventFields = map[string]Rule{
		"id":        NumberField("id"),
		"name":      TextField("name"),
		"startdate": DateField("startDate"),
		"enddate":   DateField("endDate"),
		"createdat": DateField("createdAt"),
		"updatedat": DateField("updatedAt"),
	}

	deedFields = map[string]Rule{
		"id":        NumberField("id"),
		"type":      TextField("type"),
		"createdat": DateField("createdAt"),
		"updatedat": DateField("updatedAt"),
	}

	momentFields = map[string]Rule{
		"id":         NumberField("id"),
		"occurredon": TextField("occurredOn"),
		"createdat":  DateField("createdAt"),
		"updatedat":  DateField("updatedAt"),
	}

	translationFields = map[string]Rule{
		"id":        NumberField("id"),
		"language":  TextField("language"),
		"createdat": DateField("createdAt"),
		"updatedat": DateField("updatedAt"),
		"has_text":  BoolField("refText"),
	}
)

var (
	SongFilters = NewFilterSet("song", songFields, map[string]Rule{
		"has_recordings":   Presence("recordings"),
		"has_translations": Presence("translations"),
		"has_authors":      Presence("authors"),
		"author":           Through("authors", authorFields, "id"),
		"author_id":        Through("authors", authorFields, "id"),
		"author_name":      Through("authors", authorFields, "name"),
		"translation":      Through("translations", translationFields, "language"),
	})

	AuthorFilters = NewFilterSet("author", authorFields, map[string]Rule{
		"has_song":   Presence("songs"),
		"has_songs":  Presence("songs"),
		"song_title": Through("songs", songFields, "title"),
	})

	RecordingFilters = NewFilterSet("recording", recordingFields, map[string]Rule{
		"has_deed":   Presence("deed"),
		"has_event":  Presence("event"),
		"has_moment": Presence("moment"),
		"has_song":   Presence("song"),
		"song":       Through("song", songFields, "id"),
		"song_id":    Through("song", songFields, "id"),
		"song_title": Through("song", songFields, "title"),
		"event":      Through("event", eventFields, "name"),
		"deed":       Through("deed", deedFields, "type"),
		"moment":     Through("moment", momentFields, "occurredOn"),
	})

	EventFilters = NewFilterSet("event", eventFields, map[string]Rule{
		"has_recordings": Presence("recordings"),
	})

	DeedFilters = NewFilterSet("deed", deedFields, map[string]Rule{
		"has_recordings": Presence("recordings"),
	})

	MomentFilters = NewFilterSet("moment", momentFields, map[string]Rule{
		"has_recordings": Presence("recordings"),
	})

	TranslationFilters = NewFilterSet("translation", translationFields, map[string]Rule{
		"has_song":   Presence("song"),
		"song_title": Through("song", songFields, "title"),
	})
)

// SetFor returns the filter set registered for entity.
func SetFor(entity string) (*FilterSet, bool) {
	for _, set := range []*FilterSet{
		SongFilters, AuthorFilters, RecordingFilters, EventFilters,
		DeedFilters, MomentFilters, TranslationFilters,
	} {
		if set.entity == entity {
			return set, true
		}
	}
	return nil, false
}
