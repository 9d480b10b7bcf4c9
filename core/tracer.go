package core

import (
	"fmt"
	"reflect"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("github.com/hyperledger-labs/yui-bridge-relayer/core")
)

// StartTraceWithQueryContext creates a span and a QueryContext containing the newly-created span.
func StartTraceWithQueryContext(tracer trace.Tracer, ctx QueryContext, spanName string, opts ...trace.SpanStartOption) (QueryContext, trace.Span) {
	opts = append(opts, trace.WithAttributes(AttributeGroup("query",
		// uint64 is not supported by the attribute package
		AttributeKeyHeight.String(fmt.Sprint(ctx.Height())),
	)...))
	spanCtx, span := tracer.Start(ctx.Context(), spanName, opts...)
	return NewQueryContext(spanCtx, ctx.Height()), span
}

// WithChainAttributes returns a SpanStartOption identifying the chain
func WithChainAttributes(chainID string) trace.SpanStartOption {
	return trace.WithAttributes(AttributeKeyChainID.String(chainID))
}

// WithDirectionAttributes returns a SpanStartOption identifying the relay direction
func WithDirectionAttributes(bridge string, src, dst Chain) trace.SpanStartOption {
	return trace.WithAttributes(slices.Concat(
		[]attribute.KeyValue{AttributeKeyBridge.String(bridge)},
		AttributeGroup("src", AttributeKeyChainID.String(src.ChainID())),
		AttributeGroup("dst", AttributeKeyChainID.String(dst.ChainID())),
	)...)
}

// withPackage adds the package name of the function/method `v`
func withPackage(v any) trace.SpanStartOption {
	return trace.WithAttributes(AttributeKeyPackage.String(getPackageName(v)))
}

func getPackageName(v any) string {
	if v == nil {
		return ""
	}

	rt := reflect.TypeOf(v)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt.PkgPath()
}
