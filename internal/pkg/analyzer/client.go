package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/protokolas/protokolas/internal/pkg/analyzer/api"
	"github.com/protokolas/protokolas/internal/pkg/utils"
)

const analysisPrompt = `You are a meeting analysis assistant. Read the meeting transcript and return a single JSON object with exactly these keys:
"title" - a short meeting title,
"summary" - a concise summary of the meeting,
"key_points" - a list of the most important points as strings,
"task" - the main actionable task agreed in the meeting or an empty string,
"responsible" - the person responsible for the task or an empty string,
"deadline" - the task deadline as stated in the meeting or an empty string.
Return only the JSON object, no extra text.`

// Client comunicates with a chat completion service
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates an analyzer client
func NewClient(url, key, model string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.url = url
	res.key = key
	res.model = model
	res.timeout = time.Minute * 3
	res.httpclient = llmHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

// Analyze extracts structured meeting insight from the transcript text
func (c *Client) Analyze(ctx context.Context, text string) (*api.Analysis, error) {
	content, err := c.Chat(ctx, analysisPrompt, text)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(content, time.Now())
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends one system+user exchange and returns the model answer
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	inData := chatRequest{Model: c.model, Temperature: 0.2,
		Messages: []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}}
	body, err := json.Marshal(inData)
	if err != nil {
		return "", fmt.Errorf("can't marshal request: %w", err)
	}

	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.key != "" {
			req.Header.Set("Authorization", "Bearer "+c.key)
		}
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("model", c.model).Msg("call")
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		if len(respData.Choices) == 0 {
			return "", false, utils.NewErrTerminal(fmt.Errorf("no choices in response"))
		}
		return respData.Choices[0].Message.Content, false, nil
	}, c.backoff())
}

type rawAnalysis struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	Task        string   `json:"task"`
	Responsible string   `json:"responsible"`
	Deadline    string   `json:"deadline"`
}

func parseAnalysis(content string, now time.Time) (*api.Analysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return nil, utils.NewErrTerminal(fmt.Errorf("can't parse model response: %w", err))
	}
	res := &api.Analysis{Title: strings.TrimSpace(raw.Title), Summary: strings.TrimSpace(raw.Summary),
		KeyPoints: raw.KeyPoints, Task: strings.TrimSpace(raw.Task), Responsible: strings.TrimSpace(raw.Responsible)}
	if res.KeyPoints == nil {
		res.KeyPoints = []string{}
	}
	res.Deadline = resolveDeadline(raw.Deadline, now)
	return res, nil
}

// extractJSON strips markdown fences and any text around the outer braces
// models wrap the object despite being told not to
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	from, to := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if from >= 0 && to > from {
		return s[from : to+1]
	}
	return s
}

func llmHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
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
