package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vocalbooth/api/internal/model"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/pkg/response"
)

type ProductionHandler struct {
	service   *service.ProductionService
	validator *validator.Validate
}

func NewProductionHandler(svc *service.ProductionService, v *validator.Validate) *ProductionHandler {
	return &ProductionHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/produce/start
// @Summary      Start a production run
// @Description  Queue an asynchronous production run (clean, mix, optional master) or song generation
// @Tags         Produce
// @Accept       json
// @Produce      json
// @Param        request body model.ProduceStartRequest true "Produce start request"
// @Success      202 {object} model.ProduceStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/produce/start [post]
func (h *ProductionHandler) Start(c *fiber.Ctx) error {
	var req model.ProduceStartRequest
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

// Status handles GET /api/produce/status/:jobId
// @Summary      Get production run status
// @Description  Get the current status and progress of a production run
// @Tags         Produce
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ProduceStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/produce/status/{jobId} [get]
func (h *ProductionHandler) Status(c *fiber.Ctx) error {
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

// Result handles GET /api/produce/result/:jobId
// @Summary      Get production run result
// @Description  Get the terminal result of a production run, including per-stage outputs
// @Tags         Produce
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ProduceResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/produce/result/{jobId} [get]
func (h *ProductionHandler) Result(c *fiber.Ctx) error {
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

// Abort handles POST /api/produce/abort/:jobId
// @Summary      Abort a production run
// @Description  Request cooperative cancellation of a running production run
// @Tags         Produce
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ProduceAbortResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/produce/abort/{jobId} [post]
func (h *ProductionHandler) Abort(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Abort(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job already completed" {
			return response.ValidationError(c, "Job already completed", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
