// Package tracing wraps AWS X-Ray subsegments. When the context carries no
// segment (tracing disabled, CLI runs, tests) every call is a no-op.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/strategy/ctxmissing"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// Span is an open subsegment. A nil *Span is valid and does nothing.
type Span struct {
	seg *xray.Segment
}

// Start opens a subsegment named name under the segment in ctx.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	if xray.GetSegment(ctx) == nil {
		return ctx, nil
	}
	ctx, seg := xray.BeginSubsegment(ctx, name)
	if seg == nil {
		return ctx, nil
	}
	return ctx, &Span{seg: seg}
}

// Annotate attaches metadata to the span.
func (s *Span) Annotate(key string, value any) {
	if s == nil {
		return
	}
	if err := s.seg.AddMetadata(key, value); err != nil {
		slog.Debug("xray metadata rejected", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// End closes the span, recording err as a fault when non-nil.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	s.seg.Close(err)
}

// Configure points the SDK at the X-Ray daemon. A failed configuration falls
// back to the SDK defaults. Missing segments are logged, never fatal.
func Configure(daemonAddr, version string) error {
	if err := xray.Configure(xray.Config{
		DaemonAddr:             daemonAddr,
		ServiceVersion:         version,
		ContextMissingStrategy: ctxmissing.NewDefaultLogErrorStrategy(),
	}); err != nil {
		slog.Warn("xray configuration rejected, using defaults", slog.String("error", err.Error()))
		if err := xray.Configure(xray.Config{}); err != nil {
			return fmt.Errorf("tracing.Configure: %w", err)
		}
	}
	return nil
}

// Middleware opens one X-Ray segment per HTTP request, named name. Spans
// started by handlers nest under it.
func Middleware(name string) func(http.Handler) http.Handler {
	namer := xray.NewFixedSegmentNamer(name)
	return func(next http.Handler) http.Handler {
		return xray.Handler(namer, next)
	}
}
