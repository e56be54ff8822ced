package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

func (h *AdminHandler) sum(model interface{}, column string, query string, args ...interface{}) (decimal.Decimal, error) {
	var total decimal.Decimal
	q := h.db.Model(model).Select("COALESCE(SUM(" + column + "), 0)")
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return models.Money(total), nil
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalMembers int64
	if err := h.db.Model(&models.Member{}).Where("role = ?", models.RoleMember).Count(&totalMembers).Error; err != nil {
		return err
	}

	var activeProducts int64
	if err := h.db.Model(&models.Product{}).Where("is_active = ?", true).Count(&activeProducts).Error; err != nil {
		return err
	}

	var totalScans int64
	if err := h.db.Model(&models.Scan{}).Count(&totalScans).Error; err != nil {
		return err
	}

	purchaseValue, err := h.sum(&models.Scan{}, "amount", "")
	if err != nil {
		return err
	}

	paidRewards, err := h.sum(&models.MonthlyReward{}, "cash_reward", "reward_paid = ?", true)
	if err != nil {
		return err
	}

	// Calculated but not yet paid out.
	outstanding, err := h.sum(&models.MonthlyReward{}, "cash_reward",
		"reward_calculated = ? AND reward_paid = ?", true, false)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_members":        totalMembers,
			"active_products":      activeProducts,
			"total_scans":          totalScans,
			"total_purchase_value": purchaseValue.InexactFloat64(),
			"paid_cash_rewards":    paidRewards.InexactFloat64(),
			"unpaid_cash_rewards":  outstanding.InexactFloat64(),
		},
	})
}

// ListMembers returns members with pagination and search.
func (h *AdminHandler) ListMembers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Member{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR phone LIKE ? OR LOWER(member_code) LIKE ?",
			q, q, q, q,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var members []models.Member
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&members).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       members,
		"pagination": pg.Meta(total),
	})
}
