package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beesense/hive-dashboard/internal/core/ports"
)

// ReadingDispatcher is the interface the handler uses to enqueue readings.
type ReadingDispatcher interface {
	Enqueue(in ports.ReadingInput)
	EnqueueBatch(in []ports.ReadingInput)
}

// ReadingHandler handles sensor reading ingestion.
type ReadingHandler struct {
	dispatcher ReadingDispatcher
}

func NewReadingHandler(dispatcher ReadingDispatcher) *ReadingHandler {
	return &ReadingHandler{dispatcher: dispatcher}
}

// Receive enqueues a single reading and returns 202.
//
// @Summary      Ingest a single reading
// @Tags         readings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      readingRequest  true  "Sensor reading"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /readings [post]
func (h *ReadingHandler) Receive(c echo.Context) error {
	var req readingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	h.dispatcher.Enqueue(toReadingInput(req))
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "reading accepted"})
}

// ReceiveBatch enqueues a batch of readings and returns 202. The batch is
// rejected as a whole when any element is invalid.
//
// @Summary      Ingest a batch of readings
// @Tags         readings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []readingRequest  true  "Sensor readings"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /readings/batch [post]
func (h *ReadingHandler) ReceiveBatch(c echo.Context) error {
	var reqs []readingRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}

	inputs := make([]ports.ReadingInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("reading[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, toReadingInput(req))
	}

	h.dispatcher.EnqueueBatch(inputs)
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "readings accepted",
		Count:   len(inputs),
	})
}

func toReadingInput(r readingRequest) ports.ReadingInput {
	return ports.ReadingInput{
		HiveID:      r.HiveID,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Battery:     r.Battery,
		RecordedAt:  r.RecordedAt.UTC(),
	}
}
