package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"rejected login", domain.NewAuthError("login", domain.ErrInvalidCredentials), http.StatusUnauthorized, "invalid credentials"},
		{"duplicate register", domain.NewAuthError("register", fmt.Errorf("%w: taken", domain.ErrAccountExists)), http.StatusConflict, "account already exists"},
		{"backend down", domain.NewAuthError("login", domain.ErrBackendUnavailable), http.StatusServiceUnavailable, "authentication service unavailable"},
		{"no session", domain.ErrUnauthenticated, http.StatusUnauthorized, "not signed in"},
		{"forbidden", fmt.Errorf("ack: %w", domain.ErrForbidden), http.StatusForbidden, "access forbidden"},
		{"hive missing", domain.ErrHiveNotFound, http.StatusNotFound, "hive not found"},
		{"alert missing", domain.ErrAlertNotFound, http.StatusNotFound, "alert not found"},
		{"proxy down", fmt.Errorf("%w: dial", domain.ErrBackendUnavailable), http.StatusServiceUnavailable, "backend unavailable"},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	e := echo.New()
	h := NewHTTPErrorHandler(zerolog.Nop())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tc.err, c)

			assert.Equal(t, tc.code, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tc.msg), rec.Body.String())
		})
	}
}
