// Command flowgraph loads a GraphSpec YAML file, builds the processors it
// names, and executes the resulting DAG with the chosen executor strategy,
// printing the per-processor results to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/flowgraph/engine/infrastructure/llm"
	"github.com/flowgraph/engine/infrastructure/metrics"
	"github.com/flowgraph/engine/infrastructure/tracing"
	"github.com/flowgraph/engine/internal/application"
	"github.com/flowgraph/engine/internal/engine"
	"github.com/flowgraph/engine/internal/ports"
)

func main() {
	var (
		specPath       = flag.String("spec", "", "path to a GraphSpec YAML file (required)")
		inputPath      = flag.String("input", "", "path to the input payload (defaults to stdin)")
		strategyFlag   = flag.String("strategy", "workqueue", "executor strategy: workqueue, level, or reactive")
		failureFlag    = flag.String("on-error", "continue", "failure strategy: fail_fast, continue, or best_effort")
		maxConcurrency = flag.Int("max-concurrency", 4, "maximum concurrent processor invocations")
		metricsAddr    = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
		llmProvider    = flag.String("llm-provider", "", "LLM provider for llm_transform nodes: anthropic or openai (optional)")
		llmModel       = flag.String("llm-model", "", "model name for the configured LLM provider")
	)
	flag.Parse()

	if *specPath == "" {
		log.Fatalf("flowgraph: -spec is required")
	}

	specFile, err := os.Open(*specPath)
	if err != nil {
		log.Fatalf("flowgraph: failed to open spec: %v", err)
	}
	defer specFile.Close()

	loader := application.NewGraphLoader()
	spec, err := loader.LoadFromReader(specFile)
	if err != nil {
		log.Fatalf("flowgraph: failed to load graph spec: %v", err)
	}

	graph, err := application.BuildGraph(spec)
	if err != nil {
		log.Fatalf("flowgraph: failed to build graph: %v", err)
	}

	llmClient, err := buildLLMClient(*llmProvider, *llmModel)
	if err != nil {
		log.Fatalf("flowgraph: failed to build LLM client: %v", err)
	}

	registry := application.NewRegistry(llmClient)
	registry.RegisterBuiltinProcessors()

	processors, err := registry.BuildProcessors(spec)
	if err != nil {
		log.Fatalf("flowgraph: failed to build processors: %v", err)
	}

	payload, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("flowgraph: failed to read input: %v", err)
	}

	strategy, err := parseStrategy(*strategyFlag)
	if err != nil {
		log.Fatalf("flowgraph: %v", err)
	}
	failureStrategy, err := parseFailureStrategy(*failureFlag)
	if err != nil {
		log.Fatalf("flowgraph: %v", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(reg)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, reg)
	}

	obs := engine.Observers{
		Metrics: collector,
		Tracer:  otel.Tracer("flowgraph"),
		Run:     tracing.NewRunObserver(collector, strategy.String()),
	}
	executor := engine.NewExecutor(strategy, obs)

	input := ports.ProcessorRequest{
		Payload:  payload,
		Metadata: map[string]map[string]string{ports.BaseMetadataKey: {}},
	}

	start := time.Now()
	results, pipelineMetadata, err := executor.Execute(context.Background(), processors, graph, input, failureStrategy, *maxConcurrency)
	if err != nil {
		log.Fatalf("flowgraph: run failed after %s: %v", time.Since(start), err)
	}

	printResults(results, pipelineMetadata)
}

func parseStrategy(s string) (engine.Strategy, error) {
	switch s {
	case "workqueue", "":
		return engine.WorkQueueStrategy, nil
	case "level":
		return engine.LevelStrategy, nil
	case "reactive":
		return engine.ReactiveStrategy, nil
	default:
		return 0, fmt.Errorf("unknown -strategy %q", s)
	}
}

func parseFailureStrategy(s string) (ports.FailureStrategy, error) {
	switch s {
	case "fail_fast":
		return ports.FailFast, nil
	case "continue", "":
		return ports.ContinueOnError, nil
	case "best_effort":
		return ports.BestEffort, nil
	default:
		return 0, fmt.Errorf("unknown -on-error %q", s)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// buildLLMClient wires an infrastructure/llm provider for llm_transform
// nodes when -llm-provider is set; most graphs never reference
// llm_transform and run fine with a nil client.
func buildLLMClient(provider, model string) (ports.LLMClient, error) {
	if provider == "" {
		return nil, nil
	}
	apiKey := os.Getenv("FLOWGRAPH_LLM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("FLOWGRAPH_LLM_API_KEY must be set when -llm-provider is given")
	}
	return llm.NewClient(provider, llm.ClientConfig{APIKey: apiKey, Model: model})
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Printf("flowgraph: serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("flowgraph: metrics server stopped: %v", err)
	}
}

func printResults(results map[string]ports.ProcessorResponse, pipelineMetadata map[string]map[string]string) {
	type nodeResult struct {
		Payload  string            `json:"payload,omitempty"`
		Error    string            `json:"error,omitempty"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}
	out := make(map[string]nodeResult, len(results))
	for id, resp := range results {
		nr := nodeResult{Metadata: resp.Metadata}
		if resp.Failed() {
			nr.Error = resp.Err.Error()
		} else {
			nr.Payload = string(resp.NextPayload)
		}
		out[id] = nr
	}

	encoded, err := json.MarshalIndent(map[string]any{
		"results":  out,
		"metadata": pipelineMetadata,
	}, "", "  ")
	if err != nil {
		log.Fatalf("flowgraph: failed to encode results: %v", err)
	}
	fmt.Println(string(encoded))
}
