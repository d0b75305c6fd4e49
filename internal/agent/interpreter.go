package agent

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const systemPrompt = `You are an agent that translates user questions into actions on a publications API.
The API has these endpoints:
- GET /records lists all publications.
- GET /records/{id} returns one publication by its OpenAlex ID.
- GET /filter?keyword=XYZ&year=YYYY&language=LL searches publications by title keyword, year and language.
- POST /update refreshes the stored data by re-running the sync from OpenAlex.
If the question is ambiguous or too general, answer with the action "clarify" and a message asking for more information.
Respond only with a JSON object with the keys: action (list_all, get_by_id, search, update, clarify), keyword, year, language, id, and message (only when action is clarify).
For language use ISO 639-1 codes: "en" for English, "es" for Spanish.
If the action is search and some fields are not specified, leave them null.
Leave fields that do not apply null.`

// Interpreter turns a question into a Plan.
type Interpreter interface {
	Interpret(ctx context.Context, question string) Plan
}

// LLMConfig configures an LLMInterpreter.
type LLMConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string // Empty uses the Anthropic default
}

// LLMInterpreter interprets questions with the Anthropic Messages API.
type LLMInterpreter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	log       *zap.Logger
}

// NewLLMInterpreter creates an LLMInterpreter.
func NewLLMInterpreter(cfg LLMConfig, log *zap.Logger, opts ...option.RequestOption) *LLMInterpreter {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &LLMInterpreter{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		log:       log.Named("interpreter"),
	}
}

// Interpret never fails: transport errors and unparsable output become a
// clarify plan.
func (l *LLMInterpreter) Interpret(ctx context.Context, question string) Plan {
	msg, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(l.model),
		MaxTokens: l.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(`User question: "` + question + `"`)),
		},
	})
	if err != nil {
		l.log.Warn("Model request failed", zap.Error(err))
		return Clarify(msgInterpretError)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	plan, err := ParsePlan(text.String())
	if err != nil {
		l.log.Warn("Unusable model response", zap.Error(err), zap.String("response", text.String()))
		return Clarify(msgNotUnderstood)
	}
	l.log.Debug("Interpreted question", zap.String("action", string(plan.Action)))
	return plan
}
