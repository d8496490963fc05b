package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, studentID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, studentID, notificationID string) (*models.Notification, error)
	Broadcast(ctx context.Context, req service.BroadcastRequest) (*service.BroadcastResult, error)
}

// NotificationHandler exposes student inboxes.
type NotificationHandler struct {
	notifications notificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications notificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary Student notifications
// @Tags Notifications
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	items, err := h.notifications.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	if items == nil {
		items = []models.Notification{}
	}
	response.OK(c, items, map[string]interface{}{"unread": unread})
}

// MarkRead godoc
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path string true "Student ID"
// @Param notificationId path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/notifications/{notificationId}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), c.Param("notificationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, n)
}

// Broadcast godoc
// @Summary Broadcast announcement to every student
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body service.BroadcastRequest true "Announcement"
// @Success 202 {object} response.Envelope
// @Router /notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req service.BroadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.notifications.Broadcast(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}
