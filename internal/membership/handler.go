// internal/membership/handler.go
package membership

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

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes returns the /members subtree.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.handleHealth)
	r.Get("/getAll", h.handleList)
	r.Post("/add", h.handleAdd)
	r.Put("/update/{name}", h.handleUpdate)
	r.Delete("/del/{name}", h.handleDelete)
	r.Get("/{name}", h.handleGet)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	web.Text(w, http.StatusOK, "OK")
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	if members == nil {
		members = []library.Member{}
	}
	web.JSON(w, http.StatusOK, members)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.Get(r.Context(), nameParam(r))
	if err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	web.JSON(w, http.StatusOK, member)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req MemberPatch
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}

	if err := h.service.Add(r.Context(), req.Member()); err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	web.Text(w, http.StatusOK, "Member added successfully!")
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req MemberPatch
	if err := web.Decode(r, &req); err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	created, err := h.service.Update(r.Context(), nameParam(r), req, confirm)
	if err != nil {
		status := web.StatusFor(err)
		if errors.Is(err, library.ErrRecordNotFound) {
			status = http.StatusBadRequest
		}
		web.Error(w, r, h.logger, status, err)
		return
	}

	if created {
		web.Text(w, http.StatusOK, "Member didn't exist, but has now been added successfully!")
		return
	}
	web.Text(w, http.StatusOK, "Member updated successfully!")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), nameParam(r)); err != nil {
		web.Fail(w, r, h.logger, err)
		return
	}
	web.Text(w, http.StatusOK, "!!! Member deleted successfully !!!")
}

func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
