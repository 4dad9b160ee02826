// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/AleutianAI/DelilahBrain/pkg/logging"
	"github.com/AleutianAI/DelilahBrain/services/brain/audit"
	"github.com/AleutianAI/DelilahBrain/services/brain/memory"
	"github.com/AleutianAI/DelilahBrain/services/brain/observability"
	"github.com/AleutianAI/DelilahBrain/services/brain/orchestrator"
	"github.com/AleutianAI/DelilahBrain/services/brain/policy"
	"github.com/AleutianAI/DelilahBrain/services/brain/routes"
	"github.com/AleutianAI/DelilahBrain/services/brain/tools"
	"github.com/AleutianAI/DelilahBrain/services/llm"
)

// initTracer wires the OTLP/gRPC exporter. Tracing is optional: with no
// OTEL_EXPORTER_OTLP_ENDPOINT set, spans stay in-process no-ops.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("brain-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// buildContextStore connects Weaviate when configured, otherwise falls back
// to the in-memory store so the service still answers in lightweight mode.
func buildContextStore() memory.ContextStore {
	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	// Trim quotes and whitespace in case the container runtime passes them
	// literally.
	weaviateURL = strings.Trim(weaviateURL, "\"' ")

	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("WEAVIATE_SERVICE_URL not set. Running in lightweight mode with in-memory context.")
		return memory.NewFakeStore()
	}
	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Running in lightweight mode.",
			"url", weaviateURL, "error", err)
		return memory.NewFakeStore()
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client, running in lightweight mode", "error", err)
		return memory.NewFakeStore()
	}
	store := memory.NewWeaviateStore(client)
	if err := store.EnsureSchema(context.Background()); err != nil {
		slog.Error("Failed to ensure Weaviate schema", "error", err)
	}
	return store
}

func main() {
	port := os.Getenv("BRAIN_PORT")
	if port == "" {
		port = "12220"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "brain",
		JSON:    true,
		LogDir:  os.Getenv("BRAIN_LOG_DIR"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	store := buildContextStore()

	policyEngine, err := policy.NewEngine()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the policy engine: %v", err)
	}

	log.Println("Configuring the LLM Client")
	var llmClient llm.Client
	switch os.Getenv("LLM_BACKEND_TYPE") {
	case "openai":
		llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to ollama")
		llmClient, err = llm.NewOllamaClient()
	}
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	executor := tools.NewDefaultExecutor()
	auditSink := audit.NewSlogSink(logger.Slog())
	orch := orchestrator.New(policyEngine, store, executor, llmClient, auditSink)

	router := gin.Default()
	router.Use(otelgin.Middleware("brain-service"))
	routes.SetupRoutes(router, orch, store)

	log.Println("Starting the brain server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
