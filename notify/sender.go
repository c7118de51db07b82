package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/edumanager/edumanager/core/logger"
)

// EdgeFunctionSender delivers email through the store's send-email
// function endpoint.
type EdgeFunctionSender struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewEdgeFunctionSender creates a sender posting to
// url + "/functions/v1/send-email", authorized with apiKey.
func NewEdgeFunctionSender(url string, apiKey string) *EdgeFunctionSender {
	return &EdgeFunctionSender{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send implements Sender.
func (s *EdgeFunctionSender) Send(ctx context.Context, email Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.url+"/functions/v1/send-email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	res, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	resBody, _ := io.ReadAll(res.Body)

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resBody, &reply); err != nil {
		return fmt.Errorf("send-email returned status %d: %s", res.StatusCode, string(resBody))
	}
	if res.StatusCode != http.StatusOK || !reply.Success {
		message := reply.Error
		if message == "" {
			message = reply.Message
		}
		if message == "" {
			message = fmt.Sprintf("status %d", res.StatusCode)
		}
		return fmt.Errorf("send-email failed: %s", message)
	}
	return nil
}

// ConsoleSender logs email instead of delivering it. It is the
// development fallback when no send endpoint is configured.
type ConsoleSender struct{}

// Send implements Sender. It never fails.
func (ConsoleSender) Send(ctx context.Context, email Email) error {
	logger.FromContext(ctx).WithField("to", email.To).
		WithField("type", string(email.Type)).
		Infof("email: %s", email.Subject)
	return nil
}
