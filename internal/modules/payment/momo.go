package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"restobook/internal/domain"
)

const momoRequestType = "captureWallet"

type MomoOptions struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
	RedirectURL string
	IPNURL      string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// MomoGateway opens MoMo wallet payments and checks their IPN callbacks.
type MomoGateway struct {
	opts MomoOptions
	http *http.Client
}

func NewMomoGateway(opts MomoOptions) *MomoGateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &MomoGateway{opts: opts, http: hc}
}

func (g *MomoGateway) Method() domain.PaymentMethod { return domain.MethodMomo }

// extraData is round-tripped through MoMo so the IPN can be matched back to
// the booking and payment attempt.
type extraData struct {
	BookingID string `json:"bookingId"`
	PaymentID string `json:"paymentId"`
}

func encodeExtraData(bookingID, paymentID string) string {
	raw, _ := json.Marshal(extraData{BookingID: bookingID, PaymentID: paymentID})
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeExtraData(s string) (extraData, error) {
	var ed extraData
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return ed, fmt.Errorf("%w: extraData is not base64", ErrValidation)
	}
	if err := json.Unmarshal(raw, &ed); err != nil {
		return ed, fmt.Errorf("%w: extraData is not JSON", ErrValidation)
	}
	if ed.BookingID == "" {
		return ed, fmt.Errorf("%w: extraData has no bookingId", ErrValidation)
	}
	return ed, nil
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	ExtraData   string `json:"extraData"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
	Lang        string `json:"lang"`
}

type momoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
}

func (g *MomoGateway) Create(ctx context.Context, req GatewayRequest) (*GatewayResult, error) {
	body := momoCreateRequest{
		PartnerCode: g.opts.PartnerCode,
		AccessKey:   g.opts.AccessKey,
		RequestID:   req.TransactionID,
		Amount:      req.Amount,
		OrderID:     req.TransactionID,
		OrderInfo:   req.OrderInfo,
		RedirectURL: g.opts.RedirectURL,
		IPNURL:      g.opts.IPNURL,
		ExtraData:   encodeExtraData(req.BookingID, req.PaymentID),
		RequestType: momoRequestType,
		Lang:        "vi",
	}
	raw := fmt.Sprintf("accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		body.AccessKey, body.Amount, body.ExtraData, body.IPNURL, body.OrderID, body.OrderInfo, body.PartnerCode, body.RedirectURL, body.RequestID, body.RequestType)
	body.Signature = g.sign(raw)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("momo create: %w", err)
	}
	defer resp.Body.Close()

	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("momo create: decode status=%d: %w", resp.StatusCode, err)
	}
	if out.ResultCode != 0 || out.PayURL == "" {
		return nil, fmt.Errorf("momo create: result_code=%d message=%s", out.ResultCode, out.Message)
	}
	return &GatewayResult{TransactionID: req.TransactionID, PayURL: out.PayURL}, nil
}

// MomoIPN is the instant payment notification MoMo posts after a payment.
type MomoIPN struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

func (g *MomoGateway) VerifyIPN(n MomoIPN) error {
	if g.opts.SecretKey == "" {
		return nil
	}
	if !hmac.Equal([]byte(g.SignIPN(n)), []byte(strings.ToLower(n.Signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// SignIPN produces the signature MoMo would put on n. Used by tooling and
// tests that simulate the gateway.
func (g *MomoGateway) SignIPN(n MomoIPN) string {
	raw := fmt.Sprintf("accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		g.opts.AccessKey, n.Amount, n.ExtraData, n.Message, n.OrderID, n.OrderInfo, n.OrderType, n.PartnerCode, n.PayType, n.RequestID, n.ResponseTime, n.ResultCode, n.TransID)
	return g.sign(raw)
}

func (g *MomoGateway) sign(raw string) string {
	mac := hmac.New(sha256.New, []byte(g.opts.SecretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
