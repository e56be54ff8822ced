package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/middleware"
	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/rewards"
	"github.com/example/loyalty/internal/services"
	"github.com/example/loyalty/internal/utils"
)

// RewardHandler exposes monthly cash reward operations.
type RewardHandler struct {
	db      *gorm.DB
	service *services.RewardService
}

// NewRewardHandler constructs RewardHandler.
func NewRewardHandler(db *gorm.DB, service *services.RewardService) *RewardHandler {
	return &RewardHandler{db: db, service: service}
}

type rewardResponse struct {
	MemberID           string  `json:"memberId"`
	Year               int     `json:"year"`
	Month              int     `json:"month"`
	TotalPurchaseValue float64 `json:"totalPurchaseValue"`
	CashReward         float64 `json:"cashReward"`
	RewardCalculated   bool    `json:"rewardCalculated"`
	RewardPaid         bool    `json:"rewardPaid"`
}

type breakdownResponse struct {
	TierLabel         string  `json:"tierLabel"`
	Amount            float64 `json:"amount"`
	RatePercentString string  `json:"ratePercentString"`
	Reward            float64 `json:"reward"`
}

type calculateResponse struct {
	rewardResponse
	Breakdown []breakdownResponse `json:"breakdown"`
}

type paidResponse struct {
	rewardResponse
	RewardPaidDate   *time.Time `json:"rewardPaidDate"`
	TotalCashRewards float64    `json:"totalCashRewards"`
	AlreadyPaid      bool       `json:"alreadyPaid"`
}

func newRewardResponse(memberCode string, record models.MonthlyReward) rewardResponse {
	return rewardResponse{
		MemberID:           memberCode,
		Year:               record.Year,
		Month:              record.Month,
		TotalPurchaseValue: record.TotalPurchaseValue.InexactFloat64(),
		CashReward:         record.CashReward.InexactFloat64(),
		RewardCalculated:   record.RewardCalculated,
		RewardPaid:         record.RewardPaid,
	}
}

func newBreakdownResponse(tiers []rewards.TierAmount) []breakdownResponse {
	out := make([]breakdownResponse, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, breakdownResponse{
			TierLabel:         tier.Label,
			Amount:            tier.Amount.InexactFloat64(),
			RatePercentString: tier.RatePercent(),
			Reward:            tier.Reward.InexactFloat64(),
		})
	}
	return out
}

func parsePeriod(c *fiber.Ctx) (int, int, error) {
	year, err := c.ParamsInt("year")
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "invalid year")
	}
	month, err := c.ParamsInt("month")
	if err != nil {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "invalid month")
	}
	if err := services.ValidatePeriod(year, month); err != nil {
		return 0, 0, rewardError(err)
	}
	return year, month, nil
}

// GetReward returns a member's reward state for a month.
func (h *RewardHandler) GetReward(c *fiber.Ctx) error {
	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}

	result, err := h.service.GetReward(c.UserContext(), c.Params("memberId"), year, month)
	if err != nil {
		return rewardError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": newRewardResponse(result.Member.MemberCode, result.Record)})
}

// Calculate computes a member's reward for a month and returns the bracket breakdown.
func (h *RewardHandler) Calculate(c *fiber.Ctx) error {
	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}

	result, err := h.service.CalculateForPeriod(c.UserContext(), c.Params("memberId"), year, month)
	if err != nil {
		return rewardError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": calculateResponse{
		rewardResponse: newRewardResponse(result.Member.MemberCode, result.Record),
		Breakdown:      newBreakdownResponse(result.Breakdown),
	}})
}

// MarkPaid marks a calculated reward as paid out.
func (h *RewardHandler) MarkPaid(c *fiber.Ctx) error {
	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}

	result, err := h.service.MarkPaid(c.UserContext(), c.Params("memberId"), year, month)
	if err != nil {
		return rewardError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": paidResponse{
		rewardResponse:   newRewardResponse(result.Member.MemberCode, result.Record),
		RewardPaidDate:   result.Record.RewardPaidAt,
		TotalCashRewards: result.Member.TotalCashRewards.InexactFloat64(),
		AlreadyPaid:      result.AlreadyPaid,
	}})
}

// ListPeriod returns all reward records of a month.
func (h *RewardHandler) ListPeriod(c *fiber.Ctx) error {
	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	records, total, err := h.service.ListPeriod(c.UserContext(), year, month, pg.Limit, pg.Offset)
	if err != nil {
		return rewardError(err)
	}

	items := make([]rewardResponse, 0, len(records))
	for _, record := range records {
		code := ""
		if record.Member != nil {
			code = record.Member.MemberCode
		}
		items = append(items, newRewardResponse(code, record))
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       items,
		"pagination": pg.Meta(total),
	})
}

// CalculateAll runs the reward calculation for every member in a month.
func (h *RewardHandler) CalculateAll(c *fiber.Ctx) error {
	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}

	summary, err := h.service.CalculateAll(c.UserContext(), year, month)
	if err != nil {
		return rewardError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": summary})
}

// GetMyReward returns the authenticated member's reward state for a month.
func (h *RewardHandler) GetMyReward(c *fiber.Ctx) error {
	memberID, ok := middleware.GetCurrentMemberID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}

	var member models.Member
	if err := h.db.WithContext(c.UserContext()).Select("id", "member_code").
		First(&member, "id = ?", memberID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "member not found")
		}
		return err
	}

	result, err := h.service.GetReward(c.UserContext(), member.MemberCode, year, month)
	if err != nil {
		return rewardError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": newRewardResponse(member.MemberCode, result.Record)})
}

// Schedule returns the bracket table in use.
func (h *RewardHandler) Schedule(c *fiber.Ctx) error {
	brackets := h.service.Schedule().Brackets()
	items := make([]fiber.Map, 0, len(brackets))
	for _, b := range brackets {
		item := fiber.Map{
			"tierLabel":         b.Label(),
			"lowerBound":        b.Lower.InexactFloat64(),
			"upperBound":        nil,
			"ratePercentString": rewards.TierAmount{Rate: b.Rate}.RatePercent(),
		}
		if b.Upper != nil {
			item["upperBound"] = b.Upper.InexactFloat64()
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}
