package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/api/v1/user"
	"github.com/sahilhd/unify/internal/providers"
	"github.com/sahilhd/unify/internal/services"
	"github.com/sahilhd/unify/internal/utils"
)

// CompletionResponse carries the unified response plus what the request cost.
type CompletionResponse struct {
	Content          string               `json:"content"`
	Model            string               `json:"model"`
	Provider         string               `json:"provider"`
	Usage            providers.TokenUsage `json:"usage"`
	FinishReason     string               `json:"finish_reason"`
	Cost             float64              `json:"cost"`
	RemainingCredits float64              `json:"remaining_credits"`
	ResponseTimeMs   int                  `json:"response_time_ms"`
}

// Completions godoc
// @Summary Create a chat completion
// @Description Routes the request to the provider behind the requested model, meters it and debits the account
// @Tags chat
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input     body   providers.ChatRequest  true  "Chat Request"
// @Success 200 {object} utils.Response{data=CompletionResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 402 {object} utils.Response
// @Failure 502 {object} utils.Response
// @Router /v1/chat/completions [post]
func Completions(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	var input providers.ChatRequest
	if !utils.BindAndValidate(c, &input) {
		return
	}

	// The stream flag is accepted for client compatibility; the response is
	// produced synchronously either way.
	input.Stream = false

	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load configuration"))
		return
	}

	result, err := services.RouteChat(c.Request.Context(), &u, &input, cfg)
	if err != nil {
		status, message := statusForError(err)
		c.JSON(status, utils.NewErrorResponse(status, message))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", CompletionResponse{
		Content:          result.Response.Content,
		Model:            result.Response.Model,
		Provider:         result.Response.Provider,
		Usage:            result.Response.Usage,
		FinishReason:     result.Response.FinishReason,
		Cost:             result.Cost,
		RemainingCredits: result.RemainingCredits,
		ResponseTimeMs:   result.ResponseTimeMs,
	}))
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrModelNotSupported):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrNoCredits):
		return http.StatusPaymentRequired, "Insufficient credits"
	}

	var pe *providers.Error
	if errors.As(err, &pe) {
		return pe.HTTPStatus(), pe.Error()
	}

	return http.StatusInternalServerError, "Internal error"
}
