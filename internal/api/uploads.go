package api

import (
	"context"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/bisicus/segreteriacanti-api/internal/assets"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
	"github.com/bisicus/segreteriacanti-api/internal/storage"
)

// fieldRule constrains one multipart field. A zero max allows any count.
type fieldRule struct {
	accepted []string
	max      int
}

func (f fieldRule) accepts(mimeType string) bool {
	media, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	for _, a := range f.accepted {
		if strings.EqualFold(a, media) {
			return true
		}
	}
	return false
}

type uploadForm struct {
	store *storage.Store
	files map[string][]assets.Upload
}

// cleanup removes whatever the workflow left in the temp folder.
func (f *uploadForm) cleanup(ctx context.Context) {
	for _, uploads := range f.files {
		for _, u := range uploads {
			if err := f.store.RemoveTemp(u.Path); err != nil {
				reqctx.Logger(ctx).Warn("failed to remove temp upload", slog.String("path", u.Path), slog.Any("error", err))
			}
		}
	}
}

// receive parses a multipart request, checks every file against rules and
// saves the accepted ones to the temp folder.
func (h *Handler) receive(r *http.Request, rules map[string]fieldRule) (*uploadForm, error) {
	form := &uploadForm{store: h.store, files: map[string][]assets.Upload{}}

	if err := r.ParseMultipartForm(h.uploads.MaxMemory); err != nil {
		return form, domain.Validationf("files", "invalid multipart body")
	}
	defer r.MultipartForm.RemoveAll()

	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		headers := r.MultipartForm.File[field]
		rule, ok := rules[field]
		if !ok {
			return form, domain.Validationf(field, "unexpected file field '%s'", field)
		}
		if rule.max > 0 && len(headers) > rule.max {
			return form, domain.Validationf(field, "'%s' accepts at most %d file", field, rule.max)
		}
		for _, fh := range headers {
			mimeType := fh.Header.Get("Content-Type")
			if !rule.accepts(mimeType) {
				return form, domain.Validationf(field, "file type '%s' not accepted for '%s'", mimeType, field)
			}
			upload, err := h.saveTemp(field, fh)
			if err != nil {
				return form, err
			}
			form.files[field] = append(form.files[field], upload)
		}
	}
	return form, nil
}

func (h *Handler) saveTemp(field string, fh *multipart.FileHeader) (assets.Upload, error) {
	src, err := fh.Open()
	if err != nil {
		return assets.Upload{}, domain.Internal(err, "failed to read upload")
	}
	defer src.Close()

	path, err := h.store.SaveTemp(src)
	if err != nil {
		return assets.Upload{}, domain.Internal(err, "failed to store upload")
	}
	media, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	return assets.Upload{Field: field, Filename: fh.Filename, MIME: media, Path: path}, nil
}
