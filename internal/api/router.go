// Package api exposes the archive over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/bisicus/segreteriacanti-api/internal/archive"
	"github.com/bisicus/segreteriacanti-api/internal/assets"
	"github.com/bisicus/segreteriacanti-api/internal/config"
	"github.com/bisicus/segreteriacanti-api/internal/export"
	"github.com/bisicus/segreteriacanti-api/internal/storage"
)

const basePath = "/api/v1"

// Handler holds the services behind the HTTP routes.
type Handler struct {
	archive *archive.Service
	assets  *assets.Service
	export  *export.Service
	store   *storage.Store
	uploads config.UploadsConfig
	ping    func(context.Context) error
}

// Deps are the collaborators of the router.
type Deps struct {
	Archive *archive.Service
	Assets  *assets.Service
	Export  *export.Service
	Store   *storage.Store
	Uploads config.UploadsConfig
	// Ping reports database health for /healthz.
	Ping func(context.Context) error
}

// NewRouter registers every route on a new ServeMux.
func NewRouter(d Deps) *http.ServeMux {
	h := &Handler{
		archive: d.Archive,
		assets:  d.Assets,
		export:  d.Export,
		store:   d.Store,
		uploads: d.Uploads,
		ping:    d.Ping,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)

	a := h.archive
	mux.Handle("GET "+basePath+"/songs", listHandler(a.ListSongs))
	mux.Handle("GET "+basePath+"/songs/{id}", fetchHandler(a.FetchSong))
	mux.Handle("GET "+basePath+"/songs/{id}/lyrics", h.songFile(assets.Lyrics))
	mux.Handle("GET "+basePath+"/songs/{id}/score", h.songFile(assets.Score))
	mux.Handle("GET "+basePath+"/songs/{id}/tablatures", h.songFile(assets.Tablature))
	mux.HandleFunc("POST "+basePath+"/songs/{id}/assets", h.uploadSongAssets)
	mux.HandleFunc("POST "+basePath+"/songs/{id}/translations", h.uploadTranslations)

	mux.Handle("GET "+basePath+"/authors", listHandler(a.ListAuthors))
	mux.Handle("GET "+basePath+"/authors/{id}", fetchHandler(a.FetchAuthor))

	mux.Handle("GET "+basePath+"/recordings", listHandler(a.ListRecordings))
	mux.Handle("GET "+basePath+"/recordings/export", export.NewHTTPHandler(h.export, ReservedKeys...))
	mux.Handle("GET "+basePath+"/recordings/{id}", fetchHandler(a.FetchRecording))
	mux.Handle("GET "+basePath+"/recordings/{id}/audio", downloadHandler(h.assets.RecordingAudio))
	mux.HandleFunc("POST "+basePath+"/recordings/{id}/assets", h.uploadRecordingAssets)

	mux.Handle("GET "+basePath+"/events", listHandler(a.ListEvents))
	mux.Handle("GET "+basePath+"/events/{id}", fetchHandler(a.FetchEvent))

	mux.Handle("GET "+basePath+"/deeds", listHandler(a.ListDeeds))
	mux.Handle("GET "+basePath+"/deeds/{id}", fetchHandler(a.FetchDeed))

	mux.Handle("GET "+basePath+"/moments", listHandler(a.ListMoments))
	mux.Handle("GET "+basePath+"/moments/{id}", fetchHandler(a.FetchMoment))

	mux.Handle("GET "+basePath+"/translations", listHandler(a.ListTranslations))
	mux.Handle("GET "+basePath+"/translations/{id}", fetchHandler(a.FetchTranslation))
	mux.Handle("GET "+basePath+"/translations/{id}/text", downloadHandler(h.assets.TranslationText))

	return mux
}
