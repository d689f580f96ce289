package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/middleware"
	"github.com/natek434/gardenit/models"
	"github.com/natek434/gardenit/services"
	"github.com/natek434/gardenit/utils"
)

type RuleController struct {
	ruleService *services.RuleService
	validator   *utils.ValidationService
}

func NewRuleController(ruleService *services.RuleService, validator *utils.ValidationService) *RuleController {
	return &RuleController{
		ruleService: ruleService,
		validator:   validator,
	}
}

// ListRules returns all notification rules of the authenticated user
// @Summary List rules
// @Tags Rules
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.APIResponse{data=[]models.NotificationRule}
// @Router /rules [get]
func (rc *RuleController) ListRules(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	rules, err := rc.ruleService.ListRules(c.Request.Context(), user.ID)
	if err != nil {
		logrus.Errorf("List rules failed: %v", err)
		utils.InternalServerErrorResponse(c, "Failed to list rules")
		return
	}

	utils.SuccessResponse(c, "Rules retrieved successfully", rules)
}

// GetRule returns a single rule by ID
// @Summary Get rule
// @Tags Rules
// @Security BearerAuth
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} models.APIResponse{data=models.NotificationRule}
// @Failure 404 {object} models.APIResponse
// @Router /rules/{id} [get]
func (rc *RuleController) GetRule(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	rule, err := rc.ruleService.GetRule(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		rc.respondError(c, err, "Failed to get rule")
		return
	}

	utils.SuccessResponse(c, "Rule retrieved successfully", rule)
}

// CreateRule stores a custom notification rule
// @Summary Create rule
// @Tags Rules
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.CreateRuleRequest true "Rule definition"
// @Success 201 {object} models.APIResponse{data=models.NotificationRule}
// @Failure 400 {object} models.APIResponse
// @Router /rules [post]
func (rc *RuleController) CreateRule(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if validationErrors := rc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	rule, err := rc.ruleService.CreateRule(c.Request.Context(), user.ID, &req)
	if err != nil {
		rc.respondError(c, err, "Failed to create rule")
		return
	}

	utils.CreatedResponse(c, "Rule created successfully", rule)
}

// UpdateRule applies a partial update to a rule
// @Summary Update rule
// @Tags Rules
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param request body models.UpdateRuleRequest true "Fields to update"
// @Success 200 {object} models.APIResponse{data=models.NotificationRule}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /rules/{id} [patch]
func (rc *RuleController) UpdateRule(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	var req models.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}
	if validationErrors := rc.validator.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	rule, err := rc.ruleService.UpdateRule(c.Request.Context(), user.ID, c.Param("id"), &req)
	if err != nil {
		rc.respondError(c, err, "Failed to update rule")
		return
	}

	utils.SuccessResponse(c, "Rule updated successfully", rule)
}

// EnableRule turns a rule back on
// @Summary Enable rule
// @Tags Rules
// @Security BearerAuth
// @Param id path string true "Rule ID"
// @Success 200 {object} models.APIResponse
// @Router /rules/{id}/enable [post]
func (rc *RuleController) EnableRule(c *gin.Context) {
	rc.setEnabled(c, true, "Rule enabled")
}

// DisableRule opts the user out of a rule without deleting it. For
// built-ins this is the supported opt-out; deletion just gets
// re-provisioned.
// @Summary Disable rule
// @Tags Rules
// @Security BearerAuth
// @Param id path string true "Rule ID"
// @Success 200 {object} models.APIResponse
// @Router /rules/{id}/disable [post]
func (rc *RuleController) DisableRule(c *gin.Context) {
	rc.setEnabled(c, false, "Rule disabled")
}

func (rc *RuleController) setEnabled(c *gin.Context, enabled bool, message string) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	if err := rc.ruleService.SetRuleEnabled(c.Request.Context(), user.ID, c.Param("id"), enabled); err != nil {
		rc.respondError(c, err, "Failed to update rule")
		return
	}

	utils.SuccessResponse(c, message, nil)
}

// DeleteRule removes a rule; its past notifications are retained
// @Summary Delete rule
// @Tags Rules
// @Security BearerAuth
// @Param id path string true "Rule ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /rules/{id} [delete]
func (rc *RuleController) DeleteRule(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return
	}

	if err := rc.ruleService.DeleteRule(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		rc.respondError(c, err, "Failed to delete rule")
		return
	}

	utils.SuccessResponse(c, "Rule deleted successfully", nil)
}

func (rc *RuleController) respondError(c *gin.Context, err error, fallback string) {
	if serviceErr, ok := utils.GetServiceError(err); ok {
		switch serviceErr.Code {
		case utils.ErrCodeNotFound:
			utils.NotFoundResponse(c, "Rule")
			return
		case utils.ErrCodeValidation:
			utils.BadRequestResponse(c, serviceErr.Message)
			return
		}
	}
	logrus.Errorf("%s: %v", fallback, err)
	utils.InternalServerErrorResponse(c, fallback)
}
