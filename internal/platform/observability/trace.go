package observability

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jamshaid11601/Emergent/internal/platform/requestctx"
)

const (
	cloudTraceHeader = "X-Cloud-Trace-Context"
	serverOperation  = "marketplace-api"
)

// TraceMiddleware starts a server span through otelhttp and records the resulting trace metadata on
// the request context. A Cloud Trace header, when present, becomes the remote parent so load balancer
// traces and application spans join up.
func TraceMiddleware(projectID string) func(http.Handler) http.Handler {
	instrument := otelhttp.NewMiddleware(serverOperation,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return spanNameFromRequest(r)
		}),
	)
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		record := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			spanCtx := trace.SpanContextFromContext(r.Context())
			info := requestctx.TraceInfo{ProjectID: projectID}
			if spanCtx.IsValid() {
				info.TraceID = spanCtx.TraceID().String()
				info.SpanID = spanCtx.SpanID().String()
				info.Sampled = spanCtx.IsSampled()
			}
			if formatted := formatCloudTraceHeader(info); formatted != "" {
				w.Header().Set(cloudTraceHeader, formatted)
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithTrace(r.Context(), info)))
		})
		instrumented := instrument(record)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if remote, ok := parseCloudTraceContext(r.Header.Get(cloudTraceHeader)); ok {
				r = r.WithContext(trace.ContextWithRemoteSpanContext(r.Context(), remote))
			}
			instrumented.ServeHTTP(w, r)
		})
	}
}

func parseCloudTraceContext(header string) (trace.SpanContext, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return trace.SpanContext{}, false
	}

	traceIDHex, rest, found := strings.Cut(header, "/")
	if !found || len(strings.TrimSpace(traceIDHex)) != 32 {
		return trace.SpanContext{}, false
	}
	traceID, err := trace.TraceIDFromHex(strings.TrimSpace(traceIDHex))
	if err != nil {
		return trace.SpanContext{}, false
	}

	spanPart, optionPart, _ := strings.Cut(rest, ";")
	spanID, ok := parseSpanID(spanPart)
	if !ok {
		return trace.SpanContext{}, false
	}

	flags := trace.TraceFlags(0)
	if strings.TrimSpace(optionPart) == "o=1" {
		flags = trace.FlagsSampled
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}), true
}

// parseSpanID accepts the hex form and the decimal form Cloud Load Balancing emits.
func parseSpanID(value string) (trace.SpanID, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return trace.SpanID{}, false
	}

	if num, err := strconv.ParseUint(value, 10, 64); err == nil {
		var spanID trace.SpanID
		binary.BigEndian.PutUint64(spanID[:], num)
		return spanID, spanID.IsValid()
	}

	if len(value) <= 16 {
		if _, err := hex.DecodeString(padHex(value)); err == nil {
			spanID, err := trace.SpanIDFromHex(padHex(value))
			if err == nil {
				return spanID, true
			}
		}
	}
	return trace.SpanID{}, false
}

func padHex(value string) string {
	if len(value) < 16 {
		return strings.Repeat("0", 16-len(value)) + value
	}
	return value
}

func formatCloudTraceHeader(info requestctx.TraceInfo) string {
	if info.TraceID == "" || info.SpanID == "" {
		return ""
	}
	option := "0"
	if info.Sampled {
		option = "1"
	}
	return fmt.Sprintf("%s/%s;o=%s", info.TraceID, info.SpanID, option)
}

func spanNameFromRequest(r *http.Request) string {
	if r == nil || r.URL == nil {
		return "unknown"
	}
	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s %s", r.Method, SanitizeRoute(path))
}
