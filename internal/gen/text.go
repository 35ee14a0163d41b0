package gen

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"storyteller/internal/observability"
)

// TextService generates world bibles and turn replies through the OpenAI
// chat completions API.
type TextService struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewTextService(apiKey, model string, timeout time.Duration, logger *zap.Logger) *TextService {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)
	return &TextService{
		client:    &client,
		model:     model,
		maxTokens: 1200,
		logger:    logger,
		tracer:    otel.Tracer("text-generator"),
	}
}

// GenerateWorldBible produces the opaque tone/theme/rules text that anchors a
// new saga. The upstream model is stochastic; identical inputs may produce
// different bibles.
func (s *TextService) GenerateWorldBible(ctx context.Context, theme, archetype, contradiction string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "generate_world_bible",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("openai", s.model)...),
	)
	defer span.End()

	span.SetAttributes(
		attribute.String("saga.theme", theme),
		attribute.String("saga.archetype", archetype),
	)

	return s.complete(ctx, span, completionSpec{
		system: worldBibleSystemPrompt,
		user:   worldBibleUserPrompt(theme, archetype, contradiction),
	})
}

// GenerateTurn asks for the next structured turn and returns the raw,
// unparsed reply. A JSON object response format is requested, but the reply
// is still treated as untrusted text; parsing is the caller's concern.
func (s *TextService) GenerateTurn(ctx context.Context, storyContext, worldBible, userChoice string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "generate_turn",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.GenAIAttributes("openai", s.model)...),
	)
	defer span.End()

	span.SetAttributes(
		attribute.Int("saga.context_chars", len(storyContext)),
		attribute.String("saga.user_choice", userChoice),
	)

	return s.complete(ctx, span, completionSpec{
		system:     turnSystemPrompt,
		user:       turnUserPrompt(storyContext, worldBible, userChoice),
		jsonObject: true,
	})
}

type completionSpec struct {
	system     string
	user       string
	jsonObject bool
}

func (s *TextService) complete(ctx context.Context, span trace.Span, spec completionSpec) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(spec.system),
			openai.UserMessage(spec.user),
		},
		MaxCompletionTokens: openai.Int(int64(s.maxTokens)),
	}
	if spec.jsonObject {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: func() *shared.ResponseFormatJSONObjectParam {
				p := shared.NewResponseFormatJSONObjectParam()
				return &p
			}(),
		}
	}

	startTime := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, req)
	if err != nil {
		span.RecordError(err)
		svcErr := s.classify(err)
		s.logger.Warn("chat completion failed",
			zap.String("kind", string(svcErr.Kind)),
			zap.Int("status", svcErr.Status),
			zap.Error(err),
		)
		return "", svcErr
	}

	if len(resp.Choices) == 0 {
		err := &ServiceError{Service: "openai", Kind: KindHTTP, Message: "no completion choices returned"}
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", time.Since(startTime).Milliseconds()),
	)
	s.logger.Debug("chat completion succeeded",
		zap.Int("response_chars", len(content)),
		zap.Int64("input_tokens", resp.Usage.PromptTokens),
		zap.Int64("output_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(startTime)),
	)
	return content, nil
}

func (s *TextService) classify(err error) *ServiceError {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &ServiceError{
			Service: "openai",
			Kind:    KindHTTP,
			Message: apierr.Error(),
			Status:  apierr.StatusCode,
			Body:    string(apierr.DumpResponse(true)),
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ServiceError{Service: "openai", Kind: KindTimeout, Message: err.Error()}
	}
	return &ServiceError{Service: "openai", Kind: KindNetwork, Message: err.Error()}
}
