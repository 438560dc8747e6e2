package api

import (
	"context"
	"net/http"
	"os"

	"github.com/bisicus/segreteriacanti-api/internal/archive"
	"github.com/bisicus/segreteriacanti-api/internal/assets"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/respond"
)

func listHandler[P any](list func(context.Context, archive.ListParams) (domain.ListResult[P], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := listParams(r.URL.Query())
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		res, err := list(r.Context(), params)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)
	}
}

func fetchHandler[P any](fetch func(context.Context, int64) (P, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		item, err := fetch(r.Context(), id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, item)
	}
}

func downloadHandler(find func(context.Context, int64) (assets.File, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		file, err := find(r.Context(), id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		serveFile(w, r, file)
	}
}

func serveFile(w http.ResponseWriter, r *http.Request, file assets.File) {
	f, err := os.Open(file.Path)
	if err != nil {
		respond.Error(w, r, domain.Internal(err, "file not available"))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		respond.Error(w, r, domain.Internal(err, "file not available"))
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	http.ServeContent(w, r, file.Name, info.ModTime(), f)
}

func (h *Handler) songFile(kind assets.SongFileKind) http.HandlerFunc {
	return downloadHandler(func(ctx context.Context, id int64) (assets.File, error) {
		return h.assets.SongFile(ctx, id, kind)
	})
}

func (h *Handler) uploadSongAssets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	form, err := h.receive(r, map[string]fieldRule{
		"lyrics":    {accepted: h.uploads.Lyrics, max: 1},
		"score":     {accepted: h.uploads.Scores, max: 1},
		"tablature": {accepted: h.uploads.Scores, max: 1},
	})
	defer form.cleanup(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	uploads := make(map[assets.SongFileKind]assets.Upload)
	for field, files := range form.files {
		kind, _ := assets.ParseSongFileKind(field)
		uploads[kind] = files[0]
	}
	song, err := h.assets.LinkSongFiles(r.Context(), id, uploads)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, song)
}

func (h *Handler) uploadTranslations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	form, err := h.receive(r, map[string]fieldRule{
		"translations": {accepted: h.uploads.Translations},
	})
	defer form.cleanup(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	translations, err := h.assets.LinkTranslations(r.Context(), id, form.files["translations"])
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, translations)
}

func (h *Handler) uploadRecordingAssets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	form, err := h.receive(r, map[string]fieldRule{
		"audio": {accepted: h.uploads.Audio, max: 1},
	})
	defer form.cleanup(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	files := form.files["audio"]
	if len(files) == 0 {
		respond.Error(w, r, domain.Validationf("audio", "no file uploaded"))
		return
	}

	rec, err := h.assets.LinkRecordingAudio(r.Context(), id, files[0])
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			respond.Error(w, r, domain.Internal(err, "database unavailable"))
			return
		}
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
