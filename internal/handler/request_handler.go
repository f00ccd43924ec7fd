package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests", middleware.RequireAuth())
	{
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.PUT("/:id", h.UpdateRequest)
		requests.DELETE("/:id", h.DeleteRequest)

		requests.PUT("/:id/pass", h.transition(workflow.ActionPass))
		requests.PUT("/:id/not-pass", h.transition(workflow.ActionNotPass))
		requests.PUT("/:id/approve", h.transition(workflow.ActionApprove))
		requests.PUT("/:id/reject", h.transition(workflow.ActionReject))
		requests.PUT("/:id/complete", h.transition(workflow.ActionComplete))
		requests.PUT("/:id/not-complete", h.transition(workflow.ActionNotComplete))
	}
}

// principal builds the explicit workflow principal from the claims the
// auth middleware stored on the context.
func principal(c *gin.Context) (workflow.Principal, bool) {
	idVal, _ := c.Get(middleware.CtxUserID)
	idStr, _ := idVal.(string)
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return workflow.Principal{}, false
	}
	roleVal, _ := c.Get(middleware.CtxUserRole)
	role, _ := roleVal.(string)
	return workflow.Principal{UserID: userID, Role: role}, true
}

// writeError maps domain errors onto the API's status codes.
func writeError(c *gin.Context, err error) {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.ValidationFailed(http.StatusBadRequest, "validation failed", verr.Fields))
	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, workflow.ErrUnauthorized):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "You are not allowed to access this request"))
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Request not found"))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

// CreateRequest submits a new petty-cash request
// @Summary      Create request
// @Description  Submits a new petty-cash spending request; derived amounts are recomputed server-side
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SaveRequestDTO  true  "Request payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	var req service.SaveRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Create(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests returns the requests visible to the caller's role
// @Summary      List requests
// @Description  Returns the caller's visibility slice of the pipeline, newest first
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Narrow to one status within the visible set"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	params := pagination.Parse(c)
	filter := repository.RequestFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), p, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetRequest returns a single request's detail view
// @Summary      Get request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	result, err := h.requestService.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateRequest edits a request's payload (never its status)
// @Summary      Update request
// @Description  Re-validates and recomputes derived amounts; status, requester and creation time are untouched
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Request ID"
// @Param        payload  body      service.SaveRequestDTO  true  "Request payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	var req service.SaveRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Update(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DeleteRequest removes a request
// @Summary      Delete request
// @Description  Creator may delete while pending; administrator until terminal
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	if err := h.requestService.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Request deleted successfully"))
}

// transition builds the handler for one status-changing action. The
// body may carry an optional approver comment.
func (h *RequestHandler) transition(action workflow.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
			return
		}

		var req service.TransitionDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			// Allow empty body, the comment is optional
			req.Comment = ""
		}

		result, err := h.requestService.Transition(c.Request.Context(), p, c.Param("id"), action, req.Comment)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}
