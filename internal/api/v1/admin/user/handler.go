package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	userdto "github.com/sahilhd/unify/internal/api/v1/user"
	"github.com/sahilhd/unify/internal/services"
	"github.com/sahilhd/unify/internal/utils"
)

// List godoc
// @Summary List accounts
// @Tags admin
// @Produce  json
// @Security ApiKeyAuth
// @Param   page   query   int  false  "Page"   default(1)
// @Param   limit  query   int  false  "Limit"  default(20)
// @Success 200 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Router /admin/users [get]
func List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	users, total, err := services.FindUsers(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load users"))
		return
	}

	out := make([]userdto.UserResponse, 0, len(users))
	for i := range users {
		resp := userdto.FromModel(&users[i])
		resp.APIKey = "" // keys are never exposed to admins
		out = append(out, resp)
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", gin.H{
		"users": out,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}

type UpdateUserInput struct {
	Credits            *float64 `json:"credits"`
	RateLimitPerMinute *int     `json:"rate_limit_per_minute"`
	DailyQuota         *int     `json:"daily_quota"`
	IsActive           *bool    `json:"is_active"`
	IsAdmin            *bool    `json:"is_admin"`
}

// Update godoc
// @Summary Update an account
// @Description Selective field update with optimistic locking
// @Tags admin
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id       path   string           true  "User ID"
// @Param   input    body   UpdateUserInput  true  "Update Input"
// @Success 200 {object} utils.Response{data=user.UserResponse}
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /admin/users/{id} [put]
func Update(c *gin.Context) {
	id := c.Param("id")

	var input UpdateUserInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	updates := map[string]interface{}{}
	if input.Credits != nil {
		updates["credits"] = *input.Credits
	}
	if input.RateLimitPerMinute != nil {
		updates["rate_limit_per_minute"] = *input.RateLimitPerMinute
	}
	if input.DailyQuota != nil {
		updates["daily_quota"] = *input.DailyQuota
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.IsAdmin != nil {
		updates["is_admin"] = *input.IsAdmin
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	updated, err := services.UpdateUser(id, updates)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "User not found"))
		case errors.Is(err, services.ErrOptimisticLock):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update user"))
		}
		return
	}

	resp := userdto.FromModel(updated)
	resp.APIKey = ""
	c.JSON(http.StatusOK, utils.NewSuccessResponse("User updated", resp))
}
