package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/protokolas/protokolas/internal/pkg/utils"
)

// Client comunicates with an embedding service
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	dim        int
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates an embedder client
func NewClient(url, key, model string, dim int) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	if dim < 1 {
		return nil, fmt.Errorf("no dimension")
	}
	res.url = url
	res.key = key
	res.model = model
	res.dim = dim
	res.timeout = time.Minute * 2
	res.httpclient = &http.Client{Transport: newTransport()}
	res.backoff = newSimpleBackoff
	return &res, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
// Count or dimension mismatch is a provider contract violation and is not retried
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	inData := embedRequest{Model: c.model, Input: texts}
	body, err := json.Marshal(inData)
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}

	return goapp.InvokeWithBackoff(ctx, func() ([][]float32, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.key != "" {
			req.Header.Set("Authorization", "Bearer "+c.key)
		}
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Int("texts", len(texts)).Msg("call")
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		if len(respData.Data) != len(texts) {
			return nil, false, utils.NewErrTerminal(
				fmt.Errorf("embedding count mismatch: got %d, expected %d", len(respData.Data), len(texts)))
		}
		res := make([][]float32, len(texts))
		for _, d := range respData.Data {
			if d.Index < 0 || d.Index >= len(res) {
				return nil, false, utils.NewErrTerminal(fmt.Errorf("wrong embedding index %d", d.Index))
			}
			if len(d.Embedding) != c.dim {
				return nil, false, utils.NewErrTerminal(
					fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(d.Embedding), c.dim))
			}
			if res[d.Index] != nil {
				return nil, false, utils.NewErrTerminal(fmt.Errorf("duplicate embedding index %d", d.Index))
			}
			res[d.Index] = d.Embedding
		}
		return res, false, nil
	}, c.backoff())
}

// EmbedQuery embeds a single query text
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return res[0], nil
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
