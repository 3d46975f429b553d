package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	tracer    trace.Tracer
	idcounter *uint64
}

type messageIdKeyType struct{}

var messageIdKey messageIdKeyType

// InstrumentClient traces every request made by `client`.
//
// `tracer` can be nil, it will default to a library name of "resty".
// `output` can also be nil, if it is not, every exchange is written to it when debug logging is enabled.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{output: output, tracer: tracer, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) debugging(ctx context.Context) bool {
	return i.output != nil && slog.Default().Enabled(ctx, slog.LevelDebug)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), req.Method)

	if i.debugging(ctx) {
		messageId := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
		ctx = context.WithValue(ctx, messageIdKey, messageId)
	}

	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	// setting request attributes here since res.Request.RawRequest is nil in onBeforeRequest
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(requestAttributes(res.Request.RawRequest)...)
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	messageId, ok := ctx.Value(messageIdKey).(string)
	if ok && i.output != nil {
		i.output.Write(messageId, formatHttpMessage(res))
		slog.DebugContext(
			ctx, "request finished",
			"method", res.Request.Method,
			"status", res.StatusCode(),
			"message_id", messageId,
		)
	}

	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(RedactError(err))
	span.SetStatus(codes.Error, "request failed")
	span.SetName(fmt.Sprintf("http %s", req.Method))

	if req.RawRequest == nil {
		return
	}
	span.SetAttributes(requestAttributes(req.RawRequest)...)
}

// requestAttributes is httpconv.ClientRequest with the bot token removed from http.url.
func requestAttributes(req *http.Request) []attribute.KeyValue {
	attrs := httpconv.ClientRequest(req)
	for i, kv := range attrs {
		if kv.Value.Type() == attribute.STRING {
			attrs[i] = attribute.String(string(kv.Key), RedactURL(kv.Value.AsString()))
		}
	}
	return attrs
}
