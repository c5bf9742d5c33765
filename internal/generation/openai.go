package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/ent0n29/folio/internal/conversation"
	"github.com/ent0n29/folio/internal/reliability"
)

const defaultOpenAIModel = "gpt-4o-mini"

var emptyToolParameters = json.RawMessage(`{"type":"object","properties":{}}`)

// OpenAIGenerator talks to an OpenAI-compatible chat completions API and runs
// capability calls as function tools.
type OpenAIGenerator struct {
	client        *openai.Client
	model         string
	maxToolRounds int
	retries       int
	logger        zerolog.Logger
}

func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	config := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if base := strings.TrimSpace(cfg.OpenAIBaseURL); base != "" {
		config.BaseURL = base
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = defaultOpenAIModel
	}
	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = defaultMaxToolRounds
	}
	return &OpenAIGenerator{
		client:        openai.NewClientWithConfig(config),
		model:         model,
		maxToolRounds: rounds,
		retries:       cfg.Retries,
		logger:        cfg.Logger.With().Str("component", "generator").Str("provider", ModeOpenAI).Logger(),
	}
}

func (g *OpenAIGenerator) Name() string { return ModeOpenAI }

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.Instructions) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == conversation.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	var tools []openai.Tool
	for _, c := range req.Capabilities.List() {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        c.Name,
				Description: c.Description,
				Parameters:  emptyToolParameters,
			},
		})
	}

	var calls []string
	for round := 0; ; round++ {
		chatReq := openai.ChatCompletionRequest{
			Model:    g.model,
			Messages: messages,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		}
		// Past the round budget the model has to answer with what it has.
		if len(tools) > 0 && round < g.maxToolRounds {
			chatReq.Tools = tools
			chatReq.ToolChoice = "auto"
		}

		resp, err := g.complete(ctx, chatReq)
		if err != nil {
			return Response{}, err
		}
		if len(resp.Choices) == 0 {
			return Response{CapabilityCalls: calls}, nil
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 || chatReq.Tools == nil {
			return Response{Text: msg.Content, CapabilityCalls: calls}, nil
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		})
		for _, tc := range msg.ToolCalls {
			result, err := req.Capabilities.Invoke(tc.Function.Name)
			if err != nil {
				result = "error: " + err.Error()
			} else {
				calls = append(calls, tc.Function.Name)
			}
			g.logger.Debug().Str("capability", tc.Function.Name).Int("round", round).Msg("capability invoked")
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}
	}
}

func (g *OpenAIGenerator) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	err := reliability.Retry(ctx, g.retries, 250*time.Millisecond, 2*time.Second, isRetryableOpenAIError, func() error {
		var err error
		resp, err = g.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("create chat completion: %w", err)
	}
	return resp, nil
}

func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reliability.IsRetryableHTTPStatus(reqErr.HTTPStatusCode)
	}
	return true
}
