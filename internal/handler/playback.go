package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vocalbooth/api/internal/model"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/pkg/response"
)

type PlaybackHandler struct {
	service   *service.PlaybackService
	validator *validator.Validate
}

func NewPlaybackHandler(svc *service.PlaybackService, v *validator.Validate) *PlaybackHandler {
	return &PlaybackHandler{
		service:   svc,
		validator: v,
	}
}

// SendEmail handles POST /api/playback/email
// @Summary      Email a playback link
// @Description  Send the finished song's playback link to the customer's email
// @Tags         Playback
// @Accept       json
// @Produce      json
// @Param        request body model.PlaybackEmailRequest true "Playback email request"
// @Success      200 {object} model.PlaybackEmailResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/playback/email [post]
func (h *PlaybackHandler) SendEmail(c *fiber.Ctx) error {
	var req model.PlaybackEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.SendEmail(c.Context(), &req)
	if err != nil {
		return providerOrServiceError(c, err)
	}

	return response.OK(c, result)
}
