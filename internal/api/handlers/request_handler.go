package handlers

import (
	"net/http"

	"example.com/pacific/relief/internal/models"
	"example.com/pacific/relief/internal/services"

	"github.com/gin-gonic/gin"
)

// RequestHandler handles relief request HTTP calls
type RequestHandler struct {
	service *services.ReliefService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(service *services.ReliefService) *RequestHandler {
	return &RequestHandler{service: service}
}

// HandleListRequests returns requests, optionally filtered by event_id
func (h *RequestHandler) HandleListRequests(c *gin.Context) {
	requests, err := h.service.ListRequests(requestContext(c), c.Query("event_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// HandleCreateRequest creates a request for an existing event
func (h *RequestHandler) HandleCreateRequest(c *gin.Context) {
	var input models.RequestInput
	if !bindJSON(c, &input) {
		return
	}

	request, err := h.service.CreateRequest(requestContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// HandleUpdateRequest applies a partial update
func (h *RequestHandler) HandleUpdateRequest(c *gin.Context) {
	var patch models.RequestPatch
	if !bindJSON(c, &patch) {
		return
	}

	request, err := h.service.UpdateRequest(requestContext(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// RegisterRoutes registers the handler's routes
func (h *RequestHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/requests", h.HandleListRequests)
	router.POST("/requests", h.HandleCreateRequest)
	router.PATCH("/requests/:id", h.HandleUpdateRequest)
}
