package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"notification-system/internal/api/middleware"
	"notification-system/internal/domain"
	"notification-system/internal/services"
	"notification-system/pkg/logger"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	service *services.NotificationService
	log     logger.Logger
}

type CreateNotificationRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func NewNotificationHandler(service *services.NotificationService, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextKeyUserID).(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
	}

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		limit = parsed
	}

	notifications, err := h.service.ListNotifications(c.Request().Context(), userID, limit)
	if err != nil {
		h.log.Error("Failed to list notifications", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list notifications"})
	}

	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	return c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, _ := c.Get(middleware.ContextKeyUserID).(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
	}

	id := c.Param("id")
	notification, err := h.service.MarkRead(c.Request().Context(), id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		h.log.Error("Failed to mark notification read", "notification_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark notification read"})
	}

	return c.JSON(http.StatusOK, notification)
}

// Create is the producer surface: record-mutation handlers elsewhere in
// the system call it after their own writes commit.
func (h *NotificationHandler) Create(c echo.Context) error {
	var req CreateNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.UserID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id and message are required"})
	}

	notification, err := h.service.CreateNotification(c.Request().Context(), req.UserID, req.Message)
	if err != nil {
		h.log.Error("Failed to create notification", "user_id", req.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create notification"})
	}

	return c.JSON(http.StatusCreated, notification)
}

// FlushCache drops every cached view. Operator-only.
func (h *NotificationHandler) FlushCache(c echo.Context) error {
	if err := h.service.FlushCache(c.Request().Context()); err != nil {
		h.log.Error("Failed to flush cache", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to flush cache"})
	}

	h.log.Info("Cache flushed by operator")
	return c.JSON(http.StatusOK, map[string]string{"message": "Cache flushed"})
}
