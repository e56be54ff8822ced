package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     defaultTelegramAPI,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Debug("[Telegram] bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Debug("[Telegram] admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// RewardPaidNotification contains payout data for the admin chat.
type RewardPaidNotification struct {
	MemberCode       string
	MemberName       string
	Year             int
	Month            int
	Amount           decimal.Decimal
	TotalCashRewards decimal.Decimal
}

// FormatAmount formats a money amount with thousand separators and two decimals.
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var result strings.Builder
	length := len(intPart)
	for i, digit := range intPart {
		if i > 0 && (length-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return sign + result.String() + "." + frac
}

// NotifyRewardPaid tells the admin chat that a monthly reward was paid.
func (s *TelegramService) NotifyRewardPaid(n RewardPaidNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	name := n.MemberName
	if name == "" {
		name = "-"
	}

	message := fmt.Sprintf(`<b>💸 CASH REWARD PAID</b>
<b>Member:</b> %s (%s)
<b>Period:</b> %04d-%02d
<b>Reward:</b> %s
<b>Lifetime rewards:</b> %s`,
		html.EscapeString(name),
		html.EscapeString(n.MemberCode),
		n.Year, n.Month,
		FormatAmount(n.Amount),
		FormatAmount(n.TotalCashRewards),
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}
