// Package telemetry 初始化 OpenTelemetry，并提供业务流程的 span 和结果计数
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"cafehub/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const scope = "cafehub/service"

// ShutdownFunc 刷新并关闭导出器
type ShutdownFunc func(context.Context) error

// Init 按配置启用 OTLP/HTTP 导出。未启用时使用全局 noop provider。
func Init(ctx context.Context, cfg *config.TelemetryConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 resource 失败: %w", err)
	}

	traceExp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 trace 导出器失败: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)

	metricExp, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		tp.Shutdown(ctx)
		return nil, fmt.Errorf("创建 metric 导出器失败: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Printf("[Telemetry] OTLP 导出已启用: endpoint=%s", cfg.OTLPEndpoint)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

var (
	counterOnce sync.Once
	outcomes    metric.Int64Counter
)

func outcomeCounter() metric.Int64Counter {
	counterOnce.Do(func() {
		var err error
		outcomes, err = otel.Meter(scope).Int64Counter(
			"cafehub.workflow.outcomes",
			metric.WithDescription("业务流程结果计数，按操作和结果分组"),
		)
		if err != nil {
			log.Printf("[Telemetry] 创建计数器失败: %v", err)
		}
	})
	return outcomes
}

// StartSpan 为一次业务操作开启 span
func StartSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(scope).Start(ctx, op, trace.WithAttributes(attrs...))
}

// Finish 记录结果并结束 span。err 非空时 outcome 记为 error。
func Finish(ctx context.Context, span trace.Span, op, outcome string, err error) {
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("cafehub.outcome", outcome))
	span.End()

	if c := outcomeCounter(); c != nil {
		c.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
	}
}
