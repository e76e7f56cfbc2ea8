package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vocalbooth/api/internal/model"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/pkg/response"
)

type MixdownHandler struct {
	service   *service.MixdownService
	validator *validator.Validate
}

func NewMixdownHandler(svc *service.MixdownService, v *validator.Validate) *MixdownHandler {
	return &MixdownHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/mixdown/start
// @Summary      Start an offline mixdown
// @Description  Queue an asynchronous mixdown of a voice and an instrumental track into one WAV
// @Tags         Mixdown
// @Accept       json
// @Produce      json
// @Param        request body model.MixdownStartRequest true "Mixdown start request"
// @Success      202 {object} model.MixdownStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/mixdown/start [post]
func (h *MixdownHandler) Start(c *fiber.Ctx) error {
	var req model.MixdownStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Start(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/mixdown/status/:jobId
// @Summary      Get mixdown status
// @Description  Get the current status and progress of a mixdown job
// @Tags         Mixdown
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.MixdownStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/mixdown/status/{jobId} [get]
func (h *MixdownHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Status(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/mixdown/result/:jobId
// @Summary      Get mixdown result
// @Description  Get the stored WAV location of a completed mixdown
// @Tags         Mixdown
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.MixdownResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/mixdown/result/{jobId} [get]
func (h *MixdownHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Result(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrJobNotCompleted) {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
