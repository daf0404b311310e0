// Package conversation runs a turn-taking dialogue between two models.
//
// Each seat keeps its own context: an optional system line, the user-tagged
// opening prompt, and every line the other seat has said to it. A seat never
// sees its own responses.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/duet/pkg/config"
	"github.com/papercomputeco/duet/pkg/llm"
	"github.com/papercomputeco/duet/pkg/llm/provider"
	"github.com/papercomputeco/duet/pkg/llm/provider/ollama"
	"github.com/papercomputeco/duet/pkg/logger"
	"github.com/papercomputeco/duet/pkg/tracing"
	"github.com/papercomputeco/duet/pkg/utils"
)

// ErrInvalidTurns is returned when a negative turn count is requested.
var ErrInvalidTurns = errors.New("invalid turn count")

const logPreviewLen = 80

// Params describes a single conversation.
type Params struct {
	// ModelA speaks first, ModelB second. They may name the same model.
	ModelA string
	ModelB string

	// Prompt opens both contexts as a "User: " line.
	Prompt string

	// Turns is the total number of responses, not rounds.
	Turns int

	// SystemA and SystemB, when non-empty, lead the seat's context as a
	// "System: " line.
	SystemA string
	SystemB string

	// Options and Timeout are passed through on every request.
	Options map[string]any
	Timeout time.Duration
}

// Orchestrator alternates generation requests between two seats.
type Orchestrator struct {
	client provider.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClient sets the model client used for both seats.
func WithClient(c provider.Client) Option {
	return func(o *Orchestrator) {
		o.client = c
	}
}

// WithLogger sets the logger. Defaults to logger.Nop().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithTracer sets the tracer for conversation and turn spans. Defaults to
// tracing.Nop().
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// New creates an Orchestrator. Without WithClient, Converse talks to a local
// Ollama server at the host resolved from the environment.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logger.Nop()
	}
	if o.tracer == nil {
		o.tracer = tracing.Nop()
	}

	return o
}

type seat struct {
	model string
	lines []string
}

func newSeat(model, system, prompt string) *seat {
	s := &seat{model: model}
	if system != "" {
		s.lines = append(s.lines, "System: "+system)
	}
	s.lines = append(s.lines, "User: "+prompt)
	return s
}

func (s *seat) prompt() string {
	return strings.Join(s.lines, "\n")
}

func (s *seat) hear(t llm.Turn) {
	s.lines = append(s.lines, t.String())
}

// Converse runs p.Turns generation requests, ModelA first, and returns the
// transcript in order. Any client error aborts the conversation and no
// partial transcript is returned.
func (o *Orchestrator) Converse(ctx context.Context, p Params) (llm.Transcript, error) {
	if p.Turns < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTurns, p.Turns)
	}

	transcript := make(llm.Transcript, 0, p.Turns)
	if p.Turns == 0 {
		return transcript, nil
	}

	client, err := o.resolveClient()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := o.logger.With("conversation_id", id)
	log.Debug("starting conversation",
		"model_a", p.ModelA,
		"model_b", p.ModelB,
		"turns", p.Turns,
	)

	ctx, span := o.tracer.Start(ctx, "conversation", trace.WithAttributes(
		tracing.AttrConversationID.String(id),
		tracing.AttrModelA.String(p.ModelA),
		tracing.AttrModelB.String(p.ModelB),
		tracing.AttrTurns.Int(p.Turns),
	))
	defer span.End()

	current := newSeat(p.ModelA, p.SystemA, p.Prompt)
	other := newSeat(p.ModelB, p.SystemB, p.Prompt)

	for turn := 1; turn <= p.Turns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, fail(span, fmt.Errorf("turn %d (%s): %w", turn, current.model, err))
		}

		start := time.Now()
		t, err := o.takeTurn(ctx, client, turn, current, p)
		if err != nil {
			return nil, fail(span, fmt.Errorf("turn %d (%s): %w", turn, current.model, err))
		}

		transcript = append(transcript, t)
		other.hear(t)

		log.Debug("turn complete",
			"turn", turn,
			"speaker", t.Speaker,
			"response", utils.Truncate(t.Text, logPreviewLen),
			"elapsed", time.Since(start),
		)

		current, other = other, current
	}

	return transcript, nil
}

func (o *Orchestrator) takeTurn(ctx context.Context, client provider.Client, turn int, s *seat, p Params) (llm.Turn, error) {
	prompt := s.prompt()

	ctx, span := o.tracer.Start(ctx, "turn", trace.WithAttributes(
		tracing.AttrTurn.Int(turn),
		tracing.AttrSpeaker.String(s.model),
		tracing.AttrPromptBytes.Int(len(prompt)),
	))
	defer span.End()

	text, err := client.Generate(ctx, &llm.GenerateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Stream:  false,
		Options: p.Options,
		Timeout: p.Timeout,
	})
	if err != nil {
		return llm.Turn{}, fail(span, err)
	}

	span.SetAttributes(tracing.AttrResponseBytes.Int(len(text)))

	return llm.Turn{Speaker: s.model, Text: text}, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (o *Orchestrator) resolveClient() (provider.Client, error) {
	if o.client != nil {
		return o.client, nil
	}

	c, err := ollama.New(ollama.Config{BaseURL: config.ResolveEnv().OllamaHost})
	if err != nil {
		return nil, fmt.Errorf("creating default client: %w", err)
	}
	o.client = c

	return c, nil
}
