// internal/catalog/handler.go
package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"libradesk/internal/library"
	"libradesk/internal/web"
)

// searchBody is the ordered search response: Warning first when present,
// then books.
type searchBody struct {
	Warning string         `json:"Warning,omitempty"`
	Books   []library.Book `json:"books"`
}

type errorBody struct {
	Error string `json:"Error"`
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the /books subtree.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.handleHealth)
	r.Get("/getAll", h.handleList)
	r.Post("/add", h.handleAdd)
	r.Put("/update/{title}", h.handleUpdate)
	r.Delete("/del/{title}", h.handleDelete)
	r.Get("/search/title/{title}", h.handleSearchTitle)
	r.Get("/search/author/{author}", h.handleSearchAuthor)
	r.Get("/search/yearRange", h.handleSearchYearRange)
	r.Get("/search/titleYearRange", h.handleSearchTitleYearRange)
	r.Get("/{title}", h.handleGet)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	web.Text(w, http.StatusOK, "OK")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, nonNil(books))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.Get(r.Context(), pathParam(r, "title"))
	if err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, book)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req BookPatch
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}

	outcome, err := h.service.Add(r.Context(), req.Book())
	if err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	web.Text(w, http.StatusOK, withWarning("Book added successfully!", outcome.Warning))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req BookPatch
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	outcome, err := h.service.Update(r.Context(), pathParam(r, "title"), req, confirm)
	if err != nil {
		status := web.StatusFor(err)
		if errors.Is(err, library.ErrRecordNotFound) {
			// The caller can fix this by confirming, so it is a bad request.
			status = http.StatusBadRequest
		}
		web.Error(w, r, h.logger, status, err)
		return
	}

	msg := "Book updated successfully!"
	if outcome.Created {
		msg = "Book didn't exist, but has now been added successfully!"
	}
	web.Text(w, http.StatusOK, withWarning(msg, outcome.Warning))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), pathParam(r, "title")); err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	web.Text(w, http.StatusOK, "!!! Book deleted successfully !!!")
}

func (h *Handler) handleSearchTitle(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SearchByTitle(r.Context(), pathParam(r, "title"))
	h.writeSearch(w, r, result, err)
}

func (h *Handler) handleSearchAuthor(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SearchByAuthor(r.Context(), pathParam(r, "author"))
	h.writeSearch(w, r, result, err)
}

func (h *Handler) handleSearchYearRange(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.years(w, r)
	if !ok {
		return
	}
	result, err := h.service.SearchByYearRange(r.Context(), start, end)
	h.writeSearch(w, r, result, err)
}

func (h *Handler) handleSearchTitleYearRange(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.years(w, r)
	if !ok {
		return
	}
	result, err := h.service.SearchByTitleAndYearRange(r.Context(), r.URL.Query().Get("title"), start, end)
	h.writeSearch(w, r, result, err)
}

// years parses startYear and endYear, answering 400 itself when they are not integers.
func (h *Handler) years(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	q := r.URL.Query()
	start, err1 := strconv.Atoi(q.Get("startYear"))
	end, err2 := strconv.Atoi(q.Get("endYear"))
	if err1 != nil || err2 != nil {
		web.JSON(w, http.StatusBadRequest, errorBody{Error: "!!! startYear and endYear must be whole numbers !!!"})
		return 0, 0, false
	}
	return start, end, true
}

func (h *Handler) writeSearch(w http.ResponseWriter, r *http.Request, result SearchResult, err error) {
	if err != nil {
		status := web.StatusFor(err)
		if status == http.StatusBadRequest {
			web.JSON(w, status, errorBody{Error: web.Message(err)})
			return
		}
		web.Error(w, r, h.logger, status, err)
		return
	}
	web.JSON(w, http.StatusOK, searchBody{Warning: result.Warning, Books: nonNil(result.Books)})
}

func withWarning(msg, warning string) string {
	if warning == "" {
		return msg
	}
	return msg + " Warning: " + warning
}

func nonNil(books []library.Book) []library.Book {
	if books == nil {
		return []library.Book{}
	}
	return books
}

// pathParam returns a decoded URL parameter. chi hands back the raw segment
// when the path contains escaped slashes.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
