package modelcatalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/internal/registry"
	"github.com/sahilhd/unify/internal/utils"
)

type CatalogResponse struct {
	Models    []string          `json:"models"`
	Providers []string          `json:"providers"`
	Map       map[string]string `json:"model_providers"`
}

// List godoc
// @Summary List supported models
// @Description Returns the supported models and aliases, the providers behind them and the full model to provider map
// @Tags models
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=CatalogResponse}
// @Router /v1/models [get]
func List(c *gin.Context) {
	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", CatalogResponse{
		Models:    registry.Default.ListModels(),
		Providers: registry.Default.ListProviders(),
		Map:       registry.Default.ProviderMap(),
	}))
}
