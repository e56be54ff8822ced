package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/middleware"
	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/utils"
)

// ScanHandler records product QR scans.
type ScanHandler struct {
	db *gorm.DB
}

// NewScanHandler constructs ScanHandler.
func NewScanHandler(db *gorm.DB) *ScanHandler {
	return &ScanHandler{db: db}
}

type createScanRequest struct {
	QRCode string `json:"qr_code"`
}

// CreateScan credits the authenticated member with a product purchase.
func (h *ScanHandler) CreateScan(c *fiber.Ctx) error {
	memberID, ok := middleware.GetCurrentMemberID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createScanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.QRCode = strings.TrimSpace(req.QRCode)
	if req.QRCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "qr_code is required")
	}

	var scan models.Scan
	var pointsBalance int64
	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, "qr_code = ? AND is_active = ?", req.QRCode, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "product not found")
			}
			return err
		}

		scan = models.Scan{
			MemberID:  memberID,
			ProductID: product.ID,
			QRCode:    product.QRCode,
			Amount:    product.Price,
			Points:    product.Points,
			ScannedAt: time.Now().UTC(),
		}
		if err := tx.Create(&scan).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Member{}).Where("id = ?", memberID).
			Update("points_balance", gorm.Expr("points_balance + ?", product.Points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "member not found")
		}

		entry := models.RewardTransaction{
			MemberID:   memberID,
			Type:       models.RewardTransactionPointsEarned,
			Points:     product.Points,
			Amount:     product.Price,
			Reference:  scan.ID.String(),
			OccurredAt: scan.ScannedAt,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		var member models.Member
		if err := tx.Select("points_balance").First(&member, "id = ?", memberID).Error; err != nil {
			return err
		}
		pointsBalance = member.PointsBalance
		scan.Product = &product
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"member_id": memberID,
		"qr_code":   scan.QRCode,
		"points":    scan.Points,
	}).Info("scan recorded")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"scan":           scan,
			"points_balance": pointsBalance,
		},
	})
}

// ListScans returns the authenticated member's scans, newest first.
func (h *ScanHandler) ListScans(c *fiber.Ctx) error {
	memberID, ok := middleware.GetCurrentMemberID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("member_id = ?", memberID).Model(&models.Scan{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var scans []models.Scan
	if err := query.Preload("Product").
		Order("scanned_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&scans).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       scans,
		"pagination": pg.Meta(total),
	})
}
