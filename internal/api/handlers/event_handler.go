package handlers

import (
	"net/http"

	"example.com/pacific/relief/internal/models"
	"example.com/pacific/relief/internal/services"

	"github.com/gin-gonic/gin"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	service *services.ReliefService
}

// NewEventHandler creates a new event handler
func NewEventHandler(service *services.ReliefService) *EventHandler {
	return &EventHandler{service: service}
}

// HandleListEvents returns every event
func (h *EventHandler) HandleListEvents(c *gin.Context) {
	events, err := h.service.ListEvents(requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// HandleCreateEvent creates an event
func (h *EventHandler) HandleCreateEvent(c *gin.Context) {
	var input models.EventInput
	if !bindJSON(c, &input) {
		return
	}

	event, err := h.service.CreateEvent(requestContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// RegisterRoutes registers the handler's routes
func (h *EventHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/events", h.HandleListEvents)
	router.POST("/events", h.HandleCreateEvent)
}
