package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/config"
	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/utils"
)

const memberCodeAttempts = 5

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// Register creates a new member account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" || req.Password == "" || req.FirstName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	var existing models.Member
	if err := h.db.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "member already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	code, err := h.newMemberCode()
	if err != nil {
		return err
	}

	member := models.Member{
		MemberCode:       code,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		DisplayName:      strings.TrimSpace(fmt.Sprintf("%s %s", req.FirstName, req.LastName)),
		PasswordHash:     passwordHash,
		Role:             models.RoleMember,
		TotalCashRewards: decimal.Zero,
	}

	if err := h.db.Create(&member).Error; err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, member.ID, member.Role, h.cfg.TokenExpires())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"member": fiber.Map{
			"id":           member.ID,
			"member_code":  member.MemberCode,
			"first_name":   member.FirstName,
			"last_name":    member.LastName,
			"phone":        member.Phone,
			"display_name": member.DisplayName,
		},
		"token": token,
	})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates an existing member.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var member models.Member
	if err := h.db.Where("phone = ?", strings.TrimSpace(req.Phone)).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(member.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, member.ID, member.Role, h.cfg.TokenExpires())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"member": fiber.Map{
			"id":           member.ID,
			"member_code":  member.MemberCode,
			"display_name": member.DisplayName,
			"phone":        member.Phone,
			"role":         member.Role,
		},
		"token": token,
	})
}

func (h *AuthHandler) newMemberCode() (string, error) {
	for i := 0; i < memberCodeAttempts; i++ {
		code, err := generateMemberCode()
		if err != nil {
			return "", err
		}

		var count int64
		if err := h.db.Model(&models.Member{}).Where("member_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fiber.NewError(fiber.StatusInternalServerError, "failed to allocate member code")
}

func generateMemberCode() (string, error) {
	max := big.NewInt(100000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LM%08d", n.Int64()), nil
}
