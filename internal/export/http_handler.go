package export

import (
	"net/http"
	"strconv"

	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/reqctx"
	"github.com/bisicus/segreteriacanti-api/internal/respond"
)

const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service  *Service
	reserved []string
}

// NewHTTPHandler serves the workbook of the recordings matching the query
// string. Keys in reserved are not treated as filters.
func NewHTTPHandler(service *Service, reserved ...string) http.Handler {
	return &Handler{service: service, reserved: reserved}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	book, err := h.service.Recordings(r.Context(), filter.FromQuery(r.URL.Query(), h.reserved...))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer book.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+book.Name+`"`)
	w.Header().Set("X-Export-Rows", strconv.Itoa(book.Rows))
	w.WriteHeader(http.StatusOK)
	if _, err := book.WriteTo(w); err != nil {
		reqctx.Logger(r.Context()).Error("failed to stream export", "file", book.Name, "error", err)
	}
}
