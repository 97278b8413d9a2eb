package membership_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"libradesk/internal/library"
	"libradesk/internal/membership"
	"libradesk/internal/membership/mocks"
)

type handlerFixture struct {
	svc *mocks.MockService
	h   http.Handler
}

func newFixture(t *testing.T) handlerFixture {
	svc := mocks.NewMockService(gomock.NewController(t))
	h := membership.NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return handlerFixture{svc: svc, h: h.Routes()}
}

func (f handlerFixture) do(method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		setup      func(svc *mocks.MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "health",
			method:     http.MethodGet,
			target:     "/health",
			wantStatus: http.StatusOK,
			wantBody:   "OK",
		},
		{
			name:   "add",
			method: http.MethodPost,
			target: "/add",
			body:   `{"name":"Alice","email":"alice@example.com"}`,
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Add(gomock.Any(), library.Member{Name: "Alice", Email: "alice@example.com"}).Return(nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "Member added successfully!",
		},
		{
			name:   "add without name",
			method: http.MethodPost,
			target: "/add",
			body:   `{"email":"x@example.com"}`,
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Add(gomock.Any(), gomock.Any()).
					Return(library.NewProblem(library.ErrInvalidInput, "!!! Member name is required !!!"))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "!!! Member name is required !!!",
		},
		{
			name:   "update",
			method: http.MethodPut,
			target: "/update/Alice",
			body:   `{"email":"new@example.com"}`,
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Update(gomock.Any(), "Alice", membership.MemberPatch{Email: "new@example.com"}, false).Return(false, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "Member updated successfully!",
		},
		{
			name:   "update missing without confirm",
			method: http.MethodPut,
			target: "/update/Nobody",
			body:   `{}`,
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Update(gomock.Any(), "Nobody", membership.MemberPatch{}, false).
					Return(false, library.NewProblem(library.ErrRecordNotFound, "This member doesn't exist."))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "This member doesn't exist.",
		},
		{
			name:   "update missing with confirm",
			method: http.MethodPut,
			target: "/update/Nobody?confirm=true",
			body:   `{"email":"n@example.com"}`,
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Update(gomock.Any(), "Nobody", membership.MemberPatch{Email: "n@example.com"}, true).Return(true, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "Member didn't exist, but has now been added successfully!",
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			target: "/del/Alice",
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Delete(gomock.Any(), "Alice").Return(nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "!!! Member deleted successfully !!!",
		},
		{
			name:   "delete missing",
			method: http.MethodDelete,
			target: "/del/Ghost",
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Delete(gomock.Any(), "Ghost").
					Return(library.NewProblem(library.ErrRecordNotFound, "!!! The member you are trying to delete does not exist in the DB. !!!"))
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "!!! The member you are trying to delete does not exist in the DB. !!!",
		},
		{
			name:   "delete referenced",
			method: http.MethodDelete,
			target: "/del/Busy",
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Delete(gomock.Any(), "Busy").Return(library.NewProblem(library.ErrInUse, "in use"))
			},
			wantStatus: http.StatusConflict,
			wantBody:   "in use",
		},
		{
			name:   "get by name with space",
			method: http.MethodGet,
			target: "/Mary%20Ann",
			setup: func(svc *mocks.MockService) {
				svc.EXPECT().Get(gomock.Any(), "Mary Ann").Return(library.Member{}, library.NewProblem(library.ErrRecordNotFound, "!!! Member not found !!!"))
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "!!! Member not found !!!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f.svc)
			}

			rec := f.do(tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestHandler_GetAll(t *testing.T) {
	f := newFixture(t)
	f.svc.EXPECT().List(gomock.Any()).Return([]library.Member{{Name: "Alice", Email: "a@example.com"}}, nil)

	rec := f.do(http.MethodGet, "/getAll", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Alice"`)
}
