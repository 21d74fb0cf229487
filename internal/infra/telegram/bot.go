package telegram

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/config"
	"telegram-prediction-backend/internal/domain/ports/adapter"
)

var (
	_ adapter.PaymentProvider = (*Bot)(nil)
	_ adapter.Notifier        = (*Bot)(nil)
)

// Bot wraps the Bot API client for the payment-rail calls this service
// makes: minting invoice links, answering pre-checkout queries and sending
// receipt messages. Updates arrive over the webhook, so there is no polling
// loop here.
type Bot struct {
	api *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewBot(cfg *config.BotConfig, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "TelegramBot").Logger()
	return &Bot{api: api, log: &l}, nil
}

type labeledPrice struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// CreateInvoiceLink mints a redeemable invoice link. The method is newer
// than the typed surface of the bot library pinned here, so it goes through
// MakeRequest. Stars invoices carry an empty provider token.
func (b *Bot) CreateInvoiceLink(ctx context.Context, spec adapter.InvoiceSpec) (string, error) {
	prices, err := json.Marshal([]labeledPrice{{Label: spec.Label, Amount: spec.Amount}})
	if err != nil {
		return "", err
	}

	params := tgbotapi.Params{
		"title":       spec.Title,
		"description": spec.Description,
		"payload":     spec.Payload,
		"currency":    spec.Currency,
		"prices":      string(prices),
	}
	resp, err := b.api.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("createInvoiceLink: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("createInvoiceLink: decode result: %w", err)
	}
	return link, nil
}

// AnswerPreCheckout approves or declines a pre-checkout query. Telegram
// gives the service 10 seconds to answer; errorMessage is shown to the
// buyer verbatim when ok is false.
func (b *Bot) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	params := tgbotapi.Params{"pre_checkout_query_id": queryID}
	params.AddBool("ok", ok)
	if !ok {
		params.AddNonEmpty("error_message", errorMessage)
	}
	if _, err := b.api.MakeRequest("answerPreCheckoutQuery", params); err != nil {
		return fmt.Errorf("answerPreCheckoutQuery: %w", err)
	}
	return nil
}

func (b *Bot) SendPurchaseReceipt(ctx context.Context, r adapter.Receipt) error {
	text := fmt.Sprintf(
		"<b>Благодарим за покупку!</b>\n\nЗдравствуйте, %s, мы получили ваш платеж за <b>\"%s\"</b>. Спасибо за доверие!\n\n<b>Детали заказа:</b>\n\nID — <code>%s</code>\nСумма — %d\n\n#чек",
		r.FirstName, r.ProductName, r.ChargeID, r.Amount,
	)
	return b.send(r.ChatID, text)
}

func (b *Bot) SendRefundNotice(ctx context.Context, r adapter.Receipt) error {
	text := fmt.Sprintf(
		"<b>Уведомление о возврате средств</b>\n\nЗдравствуйте, %s, мы зафиксировали возврат платежа за <b>\"%s\"</b>.\n\n<b>Детали операции:</b>\n\nID платежа — <code>%s</code>\nСумма возврата — %d\n\nВ связи с возвратом все эффекты приобретённого продукта были отключены и удалены из вашего аккаунта.\n\n#возврат",
		r.FirstName, r.ProductName, r.ChargeID, r.Amount,
	)
	return b.send(r.ChatID, text)
}

func (b *Bot) send(chatID int64, html string) error {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}
