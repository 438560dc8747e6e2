package repository

import "strings"

type columnKind int

const (
	kindInt columnKind = iota
	kindText
	kindTimestamp
	kindDate
)

type column struct {
	name string
	kind columnKind
}

type relationShape int

const (
	// toOne: the local table holds foreignKey referencing target.id.
	toOne relationShape = iota
	// toMany: target holds foreignKey referencing local.id.
	toMany
	// manyToMany: through links local.id (throughLocal) to target.id (throughTarget).
	manyToMany
)

type relation struct {
	target        string
	shape         relationShape
	foreignKey    string
	through       string
	throughLocal  string
	throughTarget string
}

type tableSchema struct {
	entity    string
	table     string
	columns   map[string]column
	relations map[string]relation
	// selectOrder lists the column names read by every query of the table.
	selectOrder []string
}

func (s *tableSchema) column(property string) (column, bool) {
	c, ok := s.columns[property]
	return c, ok
}

// sortColumn resolves a sort key given either as property or column name.
func (s *tableSchema) sortColumn(key string) (column, bool) {
	if c, ok := s.columns[key]; ok {
		return c, true
	}
	for property, c := range s.columns {
		if strings.EqualFold(property, key) || strings.EqualFold(c.name, key) {
			return c, true
		}
	}
	return column{}, false
}

func (s *tableSchema) selectList(alias string) string {
	cols := make([]string, len(s.selectOrder))
	for i, name := range s.selectOrder {
		cols[i] = alias + "." + name
	}
	return strings.Join(cols, ", ")
}

var auditColumns = map[string]column{
	"createdAt": {name: "created_at", kind: kindTimestamp},
	"updatedAt": {name: "updated_at", kind: kindTimestamp},
	"createdBy": {name: "created_by", kind: kindText},
	"updatedBy": {name: "updated_by", kind: kindText},
}

var auditSelect = []string{"created_at", "updated_at", "created_by", "updated_by"}

func newSchema(entity, table string, columns map[string]column, relations map[string]relation, selectOrder ...string) *tableSchema {
	merged := make(map[string]column, len(columns)+len(auditColumns))
	for k, v := range auditColumns {
		merged[k] = v
	}
	for k, v := range columns {
		merged[k] = v
	}
	return &tableSchema{
		entity:      entity,
		table:       table,
		columns:     merged,
		relations:   relations,
		selectOrder: append(selectOrder, auditSelect...),
	}
}

var (
	songSchema = newSchema("song", "songs",
		map[string]column{
			"id":           {name: "id", kind: kindInt},
			"title":        {name: "title", kind: kindText},
			"refLyrics":    {name: "ref_lyrics", kind: kindText},
			"refScore":     {name: "ref_score", kind: kindText},
			"refTablature": {name: "ref_tablature", kind: kindText},
		},
		map[string]relation{
			"authors":      {target: "author", shape: manyToMany, through: "song_authors", throughLocal: "song_id", throughTarget: "author_id"},
			"recordings":   {target: "recording", shape: toMany, foreignKey: "song_id"},
			"translations": {target: "translation", shape: toMany, foreignKey: "song_id"},
		},
		"id", "title", "ref_lyrics", "ref_score", "ref_tablature",
	)

	authorSchema = newSchema("author", "authors",
		map[string]column{
			"id":   {name: "id", kind: kindInt},
			"name": {name: "name", kind: kindText},
		},
		map[string]relation{
			"songs": {target: "song", shape: manyToMany, through: "song_authors", throughLocal: "author_id", throughTarget: "song_id"},
		},
		"id", "name",
	)

	recordingSchema = newSchema("recording", "recordings",
		map[string]column{
			"id":         {name: "id", kind: kindInt},
			"comment":    {name: "comment", kind: kindText},
			"evaluation": {name: "evaluation", kind: kindText},
			"refAudio":   {name: "ref_audio", kind: kindText},
			"songId":     {name: "song_id", kind: kindInt},
			"eventId":    {name: "event_id", kind: kindInt},
			"deedId":     {name: "deed_id", kind: kindInt},
			"momentId":   {name: "moment_id", kind: kindInt},
		},
		map[string]relation{
			"song":   {target: "song", shape: toOne, foreignKey: "song_id"},
			"event":  {target: "event", shape: toOne, foreignKey: "event_id"},
			"deed":   {target: "deed", shape: toOne, foreignKey: "deed_id"},
			"moment": {target: "moment", shape: toOne, foreignKey: "moment_id"},
		},
		"id", "comment", "evaluation", "ref_audio", "song_id", "event_id", "deed_id", "moment_id",
	)

	eventSchema = newSchema("event", "events",
		map[string]column{
			"id":        {name: "id", kind: kindInt},
			"name":      {name: "name", kind: kindText},
			"startDate": {name: "start_date", kind: kindDate},
			"endDate":   {name: "end_date", kind: kindDate},
		},
		map[string]relation{
			"recordings": {target: "recording", shape: toMany, foreignKey: "event_id"},
		},
		"id", "name", "start_date", "end_date",
	)

	deedSchema = newSchema("deed", "deeds",
		map[string]column{
			"id":   {name: "id", kind: kindInt},
			"type": {name: "type", kind: kindText},
		},
		map[string]relation{
			"recordings": {target: "recording", shape: toMany, foreignKey: "deed_id"},
		},
		"id", "type",
	)

	momentSchema = newSchema("moment", "moments",
		map[string]column{
			"id":         {name: "id", kind: kindInt},
			"occurredOn": {name: "occurred_on", kind: kindText},
		},
		map[string]relation{
			"recordings": {target: "recording", shape: toMany, foreignKey: "moment_id"},
		},
		"id", "occurred_on",
	)

	translationSchema = newSchema("translation", "translations",
		map[string]column{
			"id":       {name: "id", kind: kindInt},
			"language": {name: "language", kind: kindText},
			"refText":  {name: "ref_text", kind: kindText},
			"songId":   {name: "song_id", kind: kindInt},
		},
		map[string]relation{
			"song": {target: "song", shape: toOne, foreignKey: "song_id"},
		},
		"id", "language", "ref_text", "song_id",
	)
)

func schemaFor(entity string) (*tableSchema, bool) {
	switch entity {
	case "song":
		return songSchema, true
	case "author":
		return authorSchema, true
	case "recording":
		return recordingSchema, true
	case "event":
		return eventSchema, true
	case "deed":
		return deedSchema, true
	case "moment":
		return momentSchema, true
	case "translation":
		return translationSchema, true
	}
	return nil, false
}
