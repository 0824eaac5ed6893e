package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/beesense/hive-dashboard/internal/core/ports"
)

const (
	defaultReadingsLimit = 50
	maxReadingsLimit     = 500
)

// TokenSource yields the bearer credential of the current session.
type TokenSource interface {
	Token() string
}

// HiveHandler serves the dashboard's hive and alert views by forwarding to
// the backend with the current session's credential.
type HiveHandler struct {
	backend ports.HiveBackend
	tokens  TokenSource
}

func NewHiveHandler(backend ports.HiveBackend, tokens TokenSource) *HiveHandler {
	return &HiveHandler{backend: backend, tokens: tokens}
}

// List godoc
//
// @Summary   List hives
// @Tags      hives
// @Produce   json
// @Success   200  {array}   domain.Hive
// @Failure   401  {object}  errorResponse
// @Failure   503  {object}  errorResponse
// @Router    /api/hives [get]
func (h *HiveHandler) List(c echo.Context) error {
	hives, err := h.backend.ListHives(c.Request().Context(), h.tokens.Token())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hives)
}

// Get godoc
//
// @Summary   Get a hive
// @Tags      hives
// @Produce   json
// @Param     id   path      string  true  "Hive ID"
// @Success   200  {object}  domain.Hive
// @Failure   404  {object}  errorResponse
// @Router    /api/hives/{id} [get]
func (h *HiveHandler) Get(c echo.Context) error {
	hive, err := h.backend.GetHive(c.Request().Context(), h.tokens.Token(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hive)
}

// Readings godoc
//
// @Summary   Reading history of a hive, newest first
// @Tags      hives
// @Produce   json
// @Param     id     path      string  true   "Hive ID"
// @Param     limit  query     int     false  "Maximum number of readings (default 50, max 500)"
// @Success   200    {array}   domain.Reading
// @Failure   400    {object}  errorResponse
// @Failure   404    {object}  errorResponse
// @Router    /api/hives/{id}/readings [get]
func (h *HiveHandler) Readings(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return err
	}
	readings, err := h.backend.ListReadings(c.Request().Context(), h.tokens.Token(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, readings)
}

// Alerts godoc
//
// @Summary   List alerts
// @Tags      alerts
// @Produce   json
// @Param     hive_id  query     string  false  "Only alerts of this hive"
// @Param     open     query     bool    false  "Only unacknowledged alerts"
// @Success   200      {array}   domain.Alert
// @Router    /api/alerts [get]
func (h *HiveHandler) Alerts(c echo.Context) error {
	filter, err := parseAlertFilter(c)
	if err != nil {
		return err
	}
	alerts, err := h.backend.ListAlerts(c.Request().Context(), h.tokens.Token(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alerts)
}

// Acknowledge godoc
//
// @Summary   Acknowledge an alert
// @Tags      alerts
// @Produce   json
// @Param     id   path      string  true  "Alert ID"
// @Success   200  {object}  domain.Alert
// @Failure   403  {object}  errorResponse
// @Failure   404  {object}  errorResponse
// @Router    /api/alerts/{id}/ack [post]
func (h *HiveHandler) Acknowledge(c echo.Context) error {
	alert, err := h.backend.AcknowledgeAlert(c.Request().Context(), h.tokens.Token(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultReadingsLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
	}
	if n > maxReadingsLimit {
		n = maxReadingsLimit
	}
	return n, nil
}

func parseAlertFilter(c echo.Context) (ports.AlertFilter, error) {
	f := ports.AlertFilter{HiveID: c.QueryParam("hive_id")}
	if raw := c.QueryParam("open"); raw != "" {
		open, err := strconv.ParseBool(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "open must be a boolean")
		}
		f.OpenOnly = open
	}
	return f, nil
}
