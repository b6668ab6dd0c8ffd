package apikey

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/internal/api/v1/user"
	"github.com/sahilhd/unify/internal/services"
	"github.com/sahilhd/unify/internal/utils"
)

type KeyResponse struct {
	APIKey string `json:"api_key"`
}

// List godoc
// @Summary Show the account's API key
// @Tags api-keys
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=KeyResponse}
// @Failure 401 {object} utils.Response
// @Router /api-keys [get]
func List(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", KeyResponse{APIKey: u.APIKey}))
}

// Regenerate godoc
// @Summary Replace the account's API key
// @Description Mints a new key; the old one stops working immediately
// @Tags api-keys
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=KeyResponse}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /api-keys [post]
func Regenerate(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	newKey, err := services.RotateAPIKey(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to regenerate API key"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("API key regenerated", KeyResponse{APIKey: newKey}))
}

// Revoke godoc
// @Summary Revoke the current API key
// @Description Deleting the key regenerates it, so the account always keeps exactly one working key
// @Tags api-keys
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=KeyResponse}
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /api-keys [delete]
func Revoke(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	newKey, err := services.RotateAPIKey(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to revoke API key"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("API key revoked and replaced", KeyResponse{APIKey: newKey}))
}
