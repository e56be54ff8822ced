package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/middleware"
	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/utils"
)

// ProfileHandler manages member profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the authenticated member's profile and balances.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	memberID, ok := middleware.GetCurrentMemberID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var member models.Member
	if err := h.db.First(&member, "id = ?", memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "member not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":                 member.ID,
			"member_code":        member.MemberCode,
			"first_name":         member.FirstName,
			"last_name":          member.LastName,
			"display_name":       member.DisplayName,
			"phone":              member.Phone,
			"role":               member.Role,
			"points_balance":     member.PointsBalance,
			"total_cash_rewards": member.TotalCashRewards.InexactFloat64(),
			"created_at":         member.CreatedAt,
			"updated_at":         member.UpdatedAt,
		},
	})
}

type updateProfileRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
}

// UpdateProfile updates member profile fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	memberID, ok := middleware.GetCurrentMemberID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.DisplayName != "" {
		updates["display_name"] = req.DisplayName
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	if err := h.db.Model(&models.Member{}).Where("id = ?", memberID).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "profile updated"})
}

// ListTransactions returns the member's points and cash reward ledger.
func (h *ProfileHandler) ListTransactions(c *fiber.Ctx) error {
	memberID, ok := middleware.GetCurrentMemberID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("member_id = ?", memberID).Model(&models.RewardTransaction{})

	if kind := c.Query("type"); kind != "" {
		query = query.Where("type = ?", kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var items []models.RewardTransaction
	if err := query.Order("occurred_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       items,
		"pagination": pg.Meta(total),
	})
}
