package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
)

// HiveDataHandler serves hives, readings and alerts straight from the
// backend's repositories.
type HiveDataHandler struct {
	hives    ports.HiveRepository
	readings ports.ReadingRepository
	alerts   ports.AlertRepository
	log      zerolog.Logger
}

func NewHiveDataHandler(
	hives ports.HiveRepository,
	readings ports.ReadingRepository,
	alerts ports.AlertRepository,
	log zerolog.Logger,
) *HiveDataHandler {
	return &HiveDataHandler{hives: hives, readings: readings, alerts: alerts, log: log}
}

// List godoc
//
// @Summary   List hives
// @Tags      hives
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}  domain.Hive
// @Router    /hives [get]
func (h *HiveDataHandler) List(c echo.Context) error {
	hives, err := h.hives.List(c.Request().Context())
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
// @Security  BearerAuth
// @Param     id   path      string  true  "Hive ID"
// @Success   200  {object}  domain.Hive
// @Failure   404  {object}  errorResponse
// @Router    /hives/{id} [get]
func (h *HiveDataHandler) Get(c echo.Context) error {
	hive, err := h.hives.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hive)
}

// Create godoc
//
// @Summary   Register a hive
// @Tags      hives
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     body  body      createHiveRequest  true  "Hive"
// @Success   201   {object}  domain.Hive
// @Failure   403   {object}  errorResponse
// @Failure   422   {object}  errorResponse
// @Router    /hives [post]
func (h *HiveDataHandler) Create(c echo.Context) error {
	caller, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req createHiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	hive := &domain.Hive{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Location:          req.Location,
		EstimatedBeeCount: req.EstimatedBeeCount,
		Status:            domain.HiveStatusUnknown,
		CreatedAt:         time.Now().UTC(),
	}
	if err := h.hives.Create(c.Request().Context(), hive); err != nil {
		return err
	}

	h.log.Info().Str("hive_id", hive.ID).Str("by", caller.ID).Msg("hive created")
	return c.JSON(http.StatusCreated, hive)
}

// Readings godoc
//
// @Summary   Reading history of a hive, newest first
// @Tags      hives
// @Produce   json
// @Security  BearerAuth
// @Param     id     path      string  true   "Hive ID"
// @Param     limit  query     int     false  "Maximum number of readings (default 50, max 500)"
// @Success   200    {array}   domain.Reading
// @Failure   404    {object}  errorResponse
// @Router    /hives/{id}/readings [get]
func (h *HiveDataHandler) Readings(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.hives.FindByID(ctx, c.Param("id")); err != nil {
		return err
	}
	readings, err := h.readings.ListByHive(ctx, c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, readings)
}

// Alerts godoc
//
// @Summary   List alerts, newest first
// @Tags      alerts
// @Produce   json
// @Security  BearerAuth
// @Param     hive_id  query    string  false  "Only alerts of this hive"
// @Param     open     query    bool    false  "Only unacknowledged alerts"
// @Success   200      {array}  domain.Alert
// @Router    /alerts [get]
func (h *HiveDataHandler) Alerts(c echo.Context) error {
	filter, err := parseAlertFilter(c)
	if err != nil {
		return err
	}
	alerts, err := h.alerts.List(c.Request().Context(), filter)
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
// @Security  BearerAuth
// @Param     id   path      string  true  "Alert ID"
// @Success   200  {object}  domain.Alert
// @Failure   403  {object}  errorResponse
// @Failure   404  {object}  errorResponse
// @Router    /alerts/{id}/ack [post]
func (h *HiveDataHandler) Acknowledge(c echo.Context) error {
	caller, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	alert, err := h.alerts.Acknowledge(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	h.log.Info().Str("alert_id", alert.ID).Str("by", caller.ID).Msg("alert acknowledged")
	return c.JSON(http.StatusOK, alert)
}
