package telegram

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/usecase"
)

// Wire shapes for the webhook updates this service consumes. The pinned bot
// library predates refunded_payment, so updates are decoded locally instead
// of through its Update type.
type update struct {
	UpdateID         int64             `json:"update_id"`
	Message          *message          `json:"message"`
	PreCheckoutQuery *preCheckoutQuery `json:"pre_checkout_query"`
}

type message struct {
	Chat              *chat         `json:"chat"`
	From              *from         `json:"from"`
	SuccessfulPayment *paymentEvent `json:"successful_payment"`
	RefundedPayment   *paymentEvent `json:"refunded_payment"`
}

type chat struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

type from struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

type preCheckoutQuery struct {
	ID             string `json:"id"`
	From           *from  `json:"from"`
	Currency       string `json:"currency"`
	TotalAmount    int64  `json:"total_amount"`
	InvoicePayload string `json:"invoice_payload"`
}

type paymentEvent struct {
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
}

// PreCheckoutAnswerer answers the provider's synchronous pre-checkout
// query. *Bot implements it.
type PreCheckoutAnswerer interface {
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errMessage string) error
}

// UpdateHandler routes webhook updates into settlement. Unknown update
// kinds are acknowledged and dropped: Telegram redelivers anything the
// webhook does not 200, and there is nothing to redeliver for updates this
// service does not consume.
type UpdateHandler struct {
	bot        PreCheckoutAnswerer
	settlement usecase.SettlementUseCase
	log        *zerolog.Logger
}

func NewUpdateHandler(bot PreCheckoutAnswerer, settlement usecase.SettlementUseCase, logger *zerolog.Logger) *UpdateHandler {
	l := logger.With().Str("component", "TelegramWebhook").Logger()
	return &UpdateHandler{bot: bot, settlement: settlement, log: &l}
}

// declineMessages maps machine reasons to the buyer-visible decline text.
var declineMessages = map[string]string{
	"already_purchased":       "Этот продукт уже куплен.",
	"already_purchased_today": "Этот продукт можно купить снова через 24 часа.",
	"previous_step_unpaid":    "Сначала купите предыдущий уровень.",
	"amount_mismatch":         "Сумма счета устарела, запросите новый счет.",
	"already_settled":         "Этот счет уже оплачен.",
}

func declineText(reason string) string {
	if msg, ok := declineMessages[reason]; ok {
		return msg
	}
	return "Платеж отклонен, попробуйте запросить счет заново."
}

// HandleUpdate processes one raw webhook body. Settlement failures for
// asynchronous events are logged, not returned: a 500 would only make
// Telegram redeliver an update that will fail the same way, while the
// idempotent settlement path already tolerates genuine redeliveries.
func (h *UpdateHandler) HandleUpdate(ctx context.Context, raw []byte) {
	var u update
	if err := json.Unmarshal(raw, &u); err != nil {
		h.log.Warn().Err(err).Msg("undecodable update")
		return
	}

	switch {
	case u.PreCheckoutQuery != nil:
		h.handlePreCheckout(ctx, u.PreCheckoutQuery)
	case u.Message != nil && u.Message.SuccessfulPayment != nil:
		h.handleSuccessfulPayment(ctx, u.Message)
	case u.Message != nil && u.Message.RefundedPayment != nil:
		h.handleRefund(ctx, u.Message)
	}
}

func (h *UpdateHandler) handlePreCheckout(ctx context.Context, q *preCheckoutQuery) {
	err := h.settlement.HandlePreCheckout(ctx, q.InvoicePayload, q.TotalAmount)
	ok := err == nil

	var errText string
	if !ok {
		errText = declineText(domain.ReasonOf(err))
	}
	if aerr := h.bot.AnswerPreCheckout(ctx, q.ID, ok, errText); aerr != nil {
		h.log.Error().Err(aerr).Str("query_id", q.ID).Msg("answer pre-checkout")
	}
}

func (h *UpdateHandler) handleSuccessfulPayment(ctx context.Context, m *message) {
	cb := usecase.PaymentCallback{
		RawPayload: m.SuccessfulPayment.InvoicePayload,
		Amount:     m.SuccessfulPayment.TotalAmount,
		ChargeID:   m.SuccessfulPayment.TelegramPaymentChargeID,
	}
	if m.Chat != nil {
		cb.ChatID = m.Chat.ID
		cb.FirstName = m.Chat.FirstName
	}
	if err := h.settlement.HandleSuccessfulPayment(ctx, cb); err != nil {
		h.log.Error().Err(err).Str("charge_id", cb.ChargeID).Msg("settle payment")
	}
}

func (h *UpdateHandler) handleRefund(ctx context.Context, m *message) {
	cb := usecase.PaymentCallback{
		RawPayload: m.RefundedPayment.InvoicePayload,
		Amount:     m.RefundedPayment.TotalAmount,
		ChargeID:   m.RefundedPayment.TelegramPaymentChargeID,
	}
	if m.Chat != nil {
		cb.ChatID = m.Chat.ID
		cb.FirstName = m.Chat.FirstName
	}
	if err := h.settlement.HandleRefund(ctx, cb); err != nil {
		h.log.Error().Err(err).Str("charge_id", cb.ChargeID).Msg("reverse refund")
	}
}
