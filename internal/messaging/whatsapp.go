package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// WhatsAppClient talks to a WhatsApp HTTP gateway exposing a sendText
// endpoint (POST {base}{sendPath} with {chatId, text, session}).
type WhatsAppClient struct {
	baseURL  string
	sendPath string
	session  string
	http     *http.Client
	limiter  *rate.Limiter
	log      zerolog.Logger
}

func NewWhatsAppClient(baseURL, sendPath, session string, limiter *rate.Limiter, log zerolog.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:  baseURL,
		sendPath: sendPath,
		session:  session,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: limiter,
		log:     log,
	}
}

type sendTextRequest struct {
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	Session string `json:"session"`
}

// SendText posts one message. Returns the raw gateway response body on
// success; any network error or non-2xx status becomes a
// *TransportError.
func (c *WhatsAppClient) SendText(ctx context.Context, chatID, text string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &TransportError{Transport: "whatsapp", Err: err}
		}
	}

	payload, err := json.Marshal(sendTextRequest{ChatID: chatID, Text: text, Session: c.session})
	if err != nil {
		return "", fmt.Errorf("encode sendText payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.sendPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build sendText request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Transport: "whatsapp", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{
			Transport: "whatsapp",
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(body)),
		}
	}

	c.log.Debug().Str("chat_id", chatID).Int("status", resp.StatusCode).Msg("whatsapp message sent")
	return string(body), nil
}
