package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"hotelrides/internal/domain"
	"hotelrides/internal/pkg/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SignatureHeader = "x-kashier-signature"

	ModeTest = "test"
	ModeLive = "live"
)

type GatewayConfig struct {
	MerchantID string
	SecretKey  string
	BaseURL    string
	Mode       string
	SuccessURL string
	FailureURL string
	WebhookURL string
}

// Gateway talks to a hosted payment page. It never sees card data.
type Gateway struct {
	cfg GatewayConfig
	log *zap.Logger
}

func NewGateway(cfg GatewayConfig, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://checkout.kashier.io"
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeTest
	}
	return &Gateway{cfg: cfg, log: log}
}

// Session is the signed descriptor of one hosted payment attempt.
type Session struct {
	ID         string `json:"session_id"`
	MerchantID string `json:"merchant_id"`
	OrderID    string `json:"order_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Mode       string `json:"mode"`
	Signature  string `json:"signature"`
	URL        string `json:"payment_url"`
}

func (g *Gateway) configured() bool {
	return g.cfg.MerchantID != "" && g.cfg.SecretKey != ""
}

// NewSession signs a hosted-page request for p.
func (g *Gateway) NewSession(p domain.Payable) (*Session, error) {
	if !g.configured() {
		return nil, fmt.Errorf("%w: merchant credentials are not configured", domain.ErrGatewayUnavailable)
	}
	if p.AmountDue() <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	s := &Session{
		ID:         uuid.NewString(),
		MerchantID: g.cfg.MerchantID,
		OrderID:    p.PaymentReference(),
		Amount:     p.AmountDue().String(),
		Currency:   p.CurrencyCode(),
		Mode:       g.cfg.Mode,
	}
	s.Signature = g.sessionSignature(s.OrderID, s.Amount, s.Currency)

	q := url.Values{}
	q.Set("merchantId", s.MerchantID)
	q.Set("orderId", s.OrderID)
	q.Set("amount", s.Amount)
	q.Set("currency", s.Currency)
	q.Set("hash", s.Signature)
	q.Set("mode", s.Mode)
	q.Set("merchantRedirect", g.cfg.SuccessURL)
	q.Set("failureRedirect", g.cfg.FailureURL)
	q.Set("serverWebhook", g.cfg.WebhookURL)
	q.Set("allowedMethods", "card,wallet")
	s.URL = strings.TrimRight(g.cfg.BaseURL, "/") + "/?" + q.Encode()
	return s, nil
}

func (g *Gateway) sessionSignature(orderID, amount, currency string) string {
	path := fmt.Sprintf("/?payment=%s.%s.%s.%s", g.cfg.MerchantID, orderID, amount, currency)
	return g.sign(path)
}

func (g *Gateway) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.SecretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *Gateway) verify(payload, signature string) error {
	expected := g.sign(payload)
	if signature == "" || !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return domain.ErrSignatureVerification
	}
	return nil
}

// Webhook event kinds. The redirect is always a pay outcome.
const (
	EventPay       = "pay"
	EventAuthorize = "authorize"
	EventRefund    = "refund"
)

// Notification is a gateway outcome from either delivery path.
type Notification struct {
	Event           string
	Status          string
	OrderReference  string
	TransactionID   string
	RefundID        string
	Amount          string
	Currency        string
	Method          string
	CreationDate    string
	ResponseCode    string
	ResponseMessage string
	SignatureKeys   []string
	Raw             string

	fields map[string]string
}

// Key is the idempotency key of the notification.
func (n Notification) Key() string {
	if n.TransactionID != "" {
		return n.TransactionID
	}
	return n.OrderReference
}

// Kind normalizes Event; a missing event is treated as pay.
func (n Notification) Kind() string {
	e := strings.ToLower(strings.TrimSpace(n.Event))
	if e == "" {
		return EventPay
	}
	return e
}

// Refund converts a refund notification. Without a gateway refund id the
// transaction id and amount identify the refund.
func (n Notification) Refund() domain.RefundOutcome {
	out := n.Outcome()
	id := n.RefundID
	if id == "" {
		id = n.TransactionID + ":" + out.Amount.String()
	}
	return domain.RefundOutcome{
		RefundID:   id,
		Amount:     out.Amount,
		Currency:   out.Currency,
		At:         out.PaidAt,
		RawPayload: out.RawPayload,
	}
}

// Outcome converts the notification into the booking-side payment record.
func (n Notification) Outcome() domain.PaymentOutcome {
	out := domain.PaymentOutcome{
		TransactionID:   n.TransactionID,
		OrderReference:  n.OrderReference,
		Currency:        strings.ToUpper(n.Currency),
		RawPayload:      n.Raw,
		ResponseCode:    n.ResponseCode,
		ResponseMessage: n.ResponseMessage,
	}
	if amt, err := money.ParseCents(n.Amount); err == nil {
		out.Amount = amt
	}
	if t, err := time.Parse(time.RFC3339, n.CreationDate); err == nil {
		out.PaidAt = t.UTC()
	}
	return out
}

type webhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParseWebhook decodes a webhook body. Numbers keep their textual form so the
// signed values match what the gateway signed.
func ParseWebhook(body []byte) (Notification, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Notification{}, domain.NewValidationError("body", "malformed webhook payload")
	}
	if len(env.Data) == 0 {
		return Notification{}, domain.NewValidationError("data", "is required")
	}

	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return Notification{}, domain.NewValidationError("data", "malformed webhook payload")
	}

	fields := make(map[string]string, len(data))
	var keys []string
	for k, v := range data {
		if k == "signatureKeys" {
			if list, ok := v.([]interface{}); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						keys = append(keys, s)
					}
				}
			}
			continue
		}
		fields[k] = stringify(v)
	}

	n := Notification{
		Event:           env.Event,
		Status:          fields["status"],
		OrderReference:  first(fields["merchantOrderId"], fields["orderReference"]),
		TransactionID:   fields["transactionId"],
		RefundID:        first(fields["refundId"], fields["refundTransactionId"]),
		Amount:          fields["amount"],
		Currency:        fields["currency"],
		Method:          fields["method"],
		CreationDate:    fields["creationDate"],
		ResponseCode:    fields["transactionResponseCode"],
		ResponseMessage: fields["transactionResponseMessage"],
		SignatureKeys:   keys,
		Raw:             string(body),
		fields:          fields,
	}
	return n, nil
}

// VerifyWebhook recomputes the signature over the fields named in signatureKeys.
func (g *Gateway) VerifyWebhook(n Notification, signature string) error {
	if len(n.SignatureKeys) == 0 {
		return domain.ErrSignatureVerification
	}
	keys := append([]string(nil), n.SignatureKeys...)
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		q.Set(k, n.fields[k])
	}
	if err := g.verify(q.Encode(), signature); err != nil {
		g.log.Warn("webhook signature rejected",
			zap.String("order_reference", n.OrderReference),
			zap.String("transaction_id", n.TransactionID))
		return err
	}
	return nil
}

// ParseRedirect reads the browser callback query.
func ParseRedirect(q url.Values) Notification {
	fields := make(map[string]string, len(q))
	for k := range q {
		fields[k] = q.Get(k)
	}
	return Notification{
		Event:           EventPay,
		Status:          first(q.Get("paymentStatus"), q.Get("status")),
		OrderReference:  first(q.Get("merchantOrderId"), q.Get("orderReference")),
		TransactionID:   q.Get("transactionId"),
		Amount:          q.Get("amount"),
		Currency:        q.Get("currency"),
		ResponseCode:    q.Get("transactionResponseCode"),
		ResponseMessage: q.Get("transactionResponseMessage"),
		Raw:             q.Encode(),
		fields:          fields,
	}
}

// VerifyRedirect checks a redirect query. Every parameter except signature
// and mode is signed.
func (g *Gateway) VerifyRedirect(q url.Values) error {
	signed := url.Values{}
	for k, v := range q {
		if k == "signature" || k == "mode" {
			continue
		}
		signed[k] = v
	}
	if err := g.verify(signed.Encode(), q.Get("signature")); err != nil {
		g.log.Warn("redirect signature rejected", zap.String("order_reference", q.Get("merchantOrderId")))
		return err
	}
	return nil
}

// MapStatus maps a gateway outcome code onto the payment lifecycle.
func (g *Gateway) MapStatus(code string) domain.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "SUCCESS":
		return domain.PaymentCompleted
	case "FAILED", "FAILURE", "ERROR":
		return domain.PaymentFailed
	case "PENDING":
		return domain.PaymentProcessing
	case "REFUNDED":
		return domain.PaymentRefunded
	}
	g.log.Warn("unrecognized gateway status", zap.String("status", code))
	return domain.PaymentPending
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
