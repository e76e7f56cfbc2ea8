package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/model"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/internal/structure"
	"github.com/vocalbooth/api/pkg/response"
)

type StructureHandler struct {
	service   *service.StructureService
	validator *validator.Validate
}

func NewStructureHandler(svc *service.StructureService, v *validator.Validate) *StructureHandler {
	return &StructureHandler{
		service:   svc,
		validator: v,
	}
}

// Analyze handles POST /api/structure/analyze
// @Summary      Analyze song structure
// @Description  Map a song to its labeled sections (intro, verse, chorus, bridge, outro)
// @Tags         Structure
// @Accept       json
// @Produce      json
// @Param        request body model.StructureAnalyzeRequest true "Structure analyze request"
// @Success      200 {object} model.StructureAnalyzeResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/structure/analyze [post]
func (h *StructureHandler) Analyze(c *fiber.Ctx) error {
	var req model.StructureAnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Analyze(c.Context(), &req)
	if err != nil {
		var emptyErr *structure.EmptyResultError
		if errors.As(err, &emptyErr) {
			return response.EmptyResult(c, "No sections detected in this song")
		}
		return providerOrServiceError(c, err)
	}

	return response.OK(c, result)
}

// providerOrServiceError maps hosted-function failures to 502 and everything
// else to 500.
func providerOrServiceError(c *fiber.Ctx, err error) error {
	var authErr *client.AuthError
	var transportErr *client.TransportError
	var remoteErr *client.RemoteError
	var timeoutErr *client.TimeoutError
	if errors.As(err, &authErr) || errors.As(err, &transportErr) ||
		errors.As(err, &remoteErr) || errors.As(err, &timeoutErr) {
		return response.ProviderError(c, err.Error())
	}
	return response.ServiceError(c, err.Error())
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
