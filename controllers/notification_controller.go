package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/middleware"
	"github.com/natek434/gardenit/models"
	"github.com/natek434/gardenit/services"
	"github.com/natek434/gardenit/utils"
)

type NotificationController struct {
	notificationService *services.NotificationService
}

func NewNotificationController(notificationService *services.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// ListNotifications returns the user's notification feed, newest first
// @Summary List notifications
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param unread query bool false "Only unread notifications"
// @Success 200 {object} models.APIResponse{data=[]models.Notification}
// @Router /notifications [get]
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	unreadOnly := c.Query("unread") == "true"

	notifications, total, err := nc.notificationService.List(c.Request.Context(), user.ID, page, pageSize, unreadOnly)
	if err != nil {
		logrus.Errorf("List notifications failed: %v", err)
		utils.InternalServerErrorResponse(c, "Failed to list notifications")
		return
	}

	meta := &models.MetaData{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	utils.SuccessResponseWithMeta(c, "Notifications retrieved successfully", notifications, meta)
}

// CountUnread returns the unread badge count
// @Summary Count unread notifications
// @Tags Notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /notifications/unread [get]
func (nc *NotificationController) CountUnread(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	count, err := nc.notificationService.CountUnread(c.Request.Context(), user.ID)
	if err != nil {
		logrus.Errorf("Count unread failed: %v", err)
		utils.InternalServerErrorResponse(c, "Failed to count notifications")
		return
	}

	utils.SuccessResponse(c, "Unread count retrieved successfully", gin.H{"count": count})
}

// MarkRead stamps a notification as read
// @Summary Mark notification read
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} models.APIResponse
// @Router /notifications/{id}/read [post]
func (nc *NotificationController) MarkRead(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	if err := nc.notificationService.MarkRead(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		logrus.Errorf("Mark read failed: %v", err)
		utils.InternalServerErrorResponse(c, "Failed to mark notification read")
		return
	}

	utils.SuccessResponse(c, "Notification marked read", nil)
}

// MarkCleared hides a notification from the feed. The record stays so
// throttle dedup keeps working.
// @Summary Clear notification
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} models.APIResponse
// @Router /notifications/{id}/clear [post]
func (nc *NotificationController) MarkCleared(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	if err := nc.notificationService.MarkCleared(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		logrus.Errorf("Mark cleared failed: %v", err)
		utils.InternalServerErrorResponse(c, "Failed to clear notification")
		return
	}

	utils.SuccessResponse(c, "Notification cleared", nil)
}
