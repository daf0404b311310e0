// Package tracing exports OpenTelemetry spans for conversations and their
// turns as JSON lines.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/papercomputeco/duet/pkg/utils"
)

const (
	tracerName  = "github.com/papercomputeco/duet"
	serviceName = "duet"
)

// Span attribute keys.
var (
	AttrConversationID = attribute.Key("duet.conversation.id")
	AttrModelA         = attribute.Key("duet.conversation.model_a")
	AttrModelB         = attribute.Key("duet.conversation.model_b")
	AttrTurns          = attribute.Key("duet.conversation.turns")
	AttrTurn           = attribute.Key("duet.turn.number")
	AttrSpeaker        = attribute.Key("duet.turn.speaker")
	AttrPromptBytes    = attribute.Key("duet.turn.prompt_bytes")
	AttrResponseBytes  = attribute.Key("duet.turn.response_bytes")
)

// Provider owns an SDK tracer provider that writes finished spans to a writer.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// NewProvider creates a Provider exporting to w. Spans are exported as they
// end, so nothing is lost if the process exits right after Shutdown.
func NewProvider(w io.Writer) (*Provider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", utils.Version),
	)

	return &Provider{
		provider: sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		),
	}, nil
}

// Tracer returns the duet tracer from this provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.provider.Tracer(tracerName)
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// Nop returns a tracer that records nothing.
func Nop() trace.Tracer {
	return noop.NewTracerProvider().Tracer(tracerName)
}
