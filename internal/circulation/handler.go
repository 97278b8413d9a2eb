// internal/circulation/handler.go
package circulation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

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

// Routes returns the /borrowing subtree.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.handleHealth)
	r.Post("/borrow", h.handleBorrow)
	r.Post("/return", h.handleReturn)
	r.Get("/report/currently-borrowed", h.handleCurrentlyBorrowed)
	r.Get("/report/overdue", h.handleOverdue)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	web.Text(w, http.StatusOK, "OK")
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, err := h.service.Borrow(r.Context(), q.Get("bookName"), q.Get("memberName")); err != nil {
		h.fail(w, r, err)
		return
	}
	web.Text(w, http.StatusOK, "Borrowing successful.")
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	memberName := q.Get("memberName")
	if _, err := h.service.Return(r.Context(), q.Get("bookName"), memberName); err != nil {
		h.fail(w, r, err)
		return
	}
	web.Text(w, http.StatusOK, "Book returned successfully by "+memberName)
}

func (h *Handler) handleCurrentlyBorrowed(w http.ResponseWriter, r *http.Request) {
	asOf, err := time.Parse(dateLayout, r.URL.Query().Get("currentDate"))
	if err != nil {
		web.Text(w, http.StatusBadRequest, "currentDate must be formatted as YYYY-MM-DD")
		return
	}

	loans, err := h.service.CurrentlyBorrowed(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, nonNil(loans))
}

func (h *Handler) handleOverdue(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.Overdue(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	web.JSON(w, http.StatusOK, nonNil(loans))
}

// fail maps a missing loan to 400; on this surface it is a caller mistake.
// Server-side failures answer with msgUnexpected.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := web.StatusFor(err)
	if errors.Is(err, library.ErrRecordNotFound) {
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		web.LogFailure(r, h.logger, err)
		web.Text(w, status, msgUnexpected)
		return
	}
	web.Error(w, r, h.logger, status, err)
}

func nonNil(loans []library.Loan) []library.Loan {
	if loans == nil {
		return []library.Loan{}
	}
	return loans
}
