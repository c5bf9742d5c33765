package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ent0n29/folio/internal/conversation"
	"github.com/ent0n29/folio/internal/reliability"
)

// HTTPGenerator forwards requests to a JSON HTTP endpoint.
//
// The endpoint answers either with the reply object itself or with
// {"capability_calls": ["name", ...]}, in which case the named capabilities are
// invoked and the request is re-posted with "capability_results" filled in.
type HTTPGenerator struct {
	url           string
	client        *http.Client
	maxToolRounds int
	retries       int
	logger        zerolog.Logger
}

type httpCapability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type httpPayload struct {
	Instructions      string              `json:"instructions"`
	History           []conversation.Turn `json:"history"`
	Message           string              `json:"message"`
	ResponseField     string              `json:"response_field"`
	Capabilities      []httpCapability    `json:"capabilities,omitempty"`
	CapabilityResults map[string]string   `json:"capability_results,omitempty"`
}

type capabilityCallReply struct {
	CapabilityCalls []string `json:"capability_calls"`
}

// StatusError reports a non-2xx answer from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generator http status %d: %s", e.Code, e.Body)
}

func NewHTTPGenerator(cfg Config) *HTTPGenerator {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = defaultMaxToolRounds
	}
	return &HTTPGenerator{
		url:           strings.TrimSpace(cfg.HTTPURL),
		client:        &http.Client{Timeout: timeout},
		maxToolRounds: rounds,
		retries:       cfg.Retries,
		logger:        cfg.Logger.With().Str("component", "generator").Str("provider", ModeHTTP).Logger(),
	}
}

func (g *HTTPGenerator) Name() string { return ModeHTTP }

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	payload := httpPayload{
		Instructions:  req.Instructions,
		History:       req.History,
		Message:       req.Message,
		ResponseField: responseField(req),
	}
	if payload.History == nil {
		payload.History = []conversation.Turn{}
	}
	for _, c := range req.Capabilities.List() {
		payload.Capabilities = append(payload.Capabilities, httpCapability{Name: c.Name, Description: c.Description})
	}

	var calls []string
	for round := 0; ; round++ {
		body, err := g.post(ctx, payload)
		if err != nil {
			return Response{}, err
		}

		var callReply capabilityCallReply
		if err := json.Unmarshal(body, &callReply); err != nil || len(callReply.CapabilityCalls) == 0 {
			return Response{Text: strings.TrimSpace(string(body)), CapabilityCalls: calls}, nil
		}
		if round >= g.maxToolRounds {
			return Response{}, fmt.Errorf("generator requested capabilities after %d rounds", round)
		}

		if payload.CapabilityResults == nil {
			payload.CapabilityResults = make(map[string]string, len(callReply.CapabilityCalls))
		}
		for _, name := range callReply.CapabilityCalls {
			result, err := req.Capabilities.Invoke(name)
			if err != nil {
				result = "error: " + err.Error()
			} else {
				calls = append(calls, name)
			}
			payload.CapabilityResults[name] = result
			g.logger.Debug().Str("capability", name).Int("round", round).Msg("capability invoked")
		}
	}
}

func (g *HTTPGenerator) post(ctx context.Context, payload httpPayload) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var body []byte
	err = reliability.Retry(ctx, g.retries, 250*time.Millisecond, 2*time.Second, isRetryableHTTPError, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

		res, err := g.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
			return &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(snippet))}
		}

		body, err = io.ReadAll(io.LimitReader(res.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func isRetryableHTTPError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return reliability.IsRetryableHTTPStatus(statusErr.Code)
	}
	return true
}
