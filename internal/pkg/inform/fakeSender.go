package inform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

// fakeEmailSender posts the email as JSON to a configured URL instead of
// talking SMTP. Used in integration setups without a mail server.
type fakeEmailSender struct {
	url     string
	httpCl  *http.Client
	timeout time.Duration
}

// NewFakeEmailSender initiates email sender
func NewFakeEmailSender(c *viper.Viper) (*fakeEmailSender, error) {
	url := c.GetString("smtp.fakeUrl")
	if url == "" {
		return nil, fmt.Errorf("no smtp.fakeUrl")
	}
	goapp.Log.Info().Str("URL", url).Msg("fake email sender")
	return &fakeEmailSender{url: url, httpCl: http.DefaultClient, timeout: time.Second * 5}, nil
}

// Send posts the email
func (s *fakeEmailSender) Send(m *email.Email) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("can't marshal email: %w", err)
	}

	ctx, cancelF := context.WithTimeout(context.Background(), s.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	goapp.Log.Info().Str("url", s.url).Msg("post email")
	resp, err := s.httpCl.Do(req)
	if err != nil {
		return fmt.Errorf("can't invoke '%s': %w", s.url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return fmt.Errorf("can't invoke '%s': %w", s.url, err)
	}
	return nil
}
