package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/example/ambre/internal/models"
)

// TelegramService pushes back-office notifications to the admin chat.
type TelegramService struct {
	botToken    string
	adminChatID string
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to the specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)

	msg := telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// NotifyNewOrder announces a freshly placed order in the admin chat.
func (s *TelegramService) NotifyNewOrder(order *models.Order) error {
	if s.adminChatID == "" {
		return nil
	}

	var items strings.Builder
	for i, item := range order.Items {
		name := item.ProductName
		if item.VariantLabel != "" {
			name = fmt.Sprintf("%s (%s)", name, item.VariantLabel)
		}
		items.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s %s\n",
			i+1, name, item.Quantity,
			item.UnitPrice.StringFixed(2),
			item.LineTotal.StringFixed(2), order.Currency,
		))
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>Order:</b> %s
<b>Customer:</b> %s
<b>Email:</b> %s
<b>Items:</b>
%s
<b>Total:</b> %s %s
<b>Payment:</b> %s
<b>Status:</b> %s`,
		order.OrderNumber,
		order.CustomerName,
		order.CustomerEmail,
		items.String(),
		order.TotalAmount.StringFixed(2), order.Currency,
		order.PaymentMethod,
		order.Status,
	)

	return s.SendToAdmin(strings.TrimSpace(message))
}

// NotifyRefund announces a completed refund in the admin chat.
func (s *TelegramService) NotifyRefund(orderNumber, refundID, amount, currency string) error {
	if s.adminChatID == "" {
		return nil
	}

	reference := refundID
	if reference == "" {
		reference = "manual reconciliation"
	}

	message := fmt.Sprintf(`<b>💸 ORDER REFUNDED</b>
<b>Order:</b> %s
<b>Amount:</b> %s %s
<b>Reference:</b> %s`,
		orderNumber, amount, currency, reference)

	return s.SendToAdmin(strings.TrimSpace(message))
}
