package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/utils"
)

// ProductHandler manages the scannable product catalog.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ListProducts returns paginated products with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", q, q)
	}

	switch c.Query("active") {
	case "true":
		query = query.Where("is_active = ?", true)
	case "false":
		query = query.Where("is_active = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       products,
		"pagination": pg.Meta(total),
	})
}

// GetProduct loads a product by id.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// GetByQRCode resolves an active product from its QR payload.
func (h *ProductHandler) GetByQRCode(c *fiber.Ctx) error {
	var product models.Product
	if err := h.db.First(&product, "qr_code = ? AND is_active = ?", c.Params("code"), true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

type productRequest struct {
	Name        string           `json:"name"`
	SKU         string           `json:"sku"`
	QRCode      string           `json:"qr_code"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Points      *int64           `json:"points"`
	ImageURL    string           `json:"image_url"`
	IsActive    *bool            `json:"is_active"`
}

func (r productRequest) price() (decimal.Decimal, error) {
	if r.Price == nil {
		return decimal.Zero, nil
	}
	if r.Price.IsNegative() {
		return decimal.Zero, fiber.NewError(fiber.StatusBadRequest, "price must not be negative")
	}
	return models.Money(*r.Price), nil
}

// CreateProduct inserts a new product.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.QRCode = strings.TrimSpace(req.QRCode)
	if req.Name == "" || req.QRCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and qr_code are required")
	}

	price, err := req.price()
	if err != nil {
		return err
	}

	product := models.Product{
		Name:        req.Name,
		SKU:         req.SKU,
		QRCode:      req.QRCode,
		Description: req.Description,
		Price:       price,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.Points != nil {
		if *req.Points < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "points must not be negative")
		}
		product.Points = *req.Points
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	var count int64
	if err := h.db.Model(&models.Product{}).Where("qr_code = ?", product.QRCode).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusConflict, "qr_code already in use")
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct applies a partial update to a product.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.SKU != "" {
		updates["sku"] = req.SKU
	}
	if code := strings.TrimSpace(req.QRCode); code != "" && code != product.QRCode {
		var count int64
		if err := h.db.Model(&models.Product{}).Where("qr_code = ? AND id <> ?", code, id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "qr_code already in use")
		}
		updates["qr_code"] = code
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.ImageURL != "" {
		updates["image_url"] = req.ImageURL
	}
	if req.Price != nil {
		price, err := req.price()
		if err != nil {
			return err
		}
		updates["price"] = price
	}
	if req.Points != nil {
		if *req.Points < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "points must not be negative")
		}
		updates["points"] = *req.Points
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&product).Updates(updates).Error; err != nil {
		return err
	}
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct retires a product. The row is kept so scan history still resolves.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "product deactivated"})
}
