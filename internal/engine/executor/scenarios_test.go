package executor

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowgraph/engine/internal/engine/graph"
	"github.com/flowgraph/engine/internal/engineerrors"
	"github.com/flowgraph/engine/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// strategies lists the three executor constructors under test; every
// scenario below runs against all three.
func strategies() map[string]ports.Executor {
	return map[string]ports.Executor{
		"workqueue": NewWorkQueue(Observers{}),
		"level":     NewLevel(Observers{}),
		"reactive":  NewReactive(Observers{}),
	}
}

func req(payload string) ports.ProcessorRequest {
	return ports.ProcessorRequest{
		Payload:  []byte(payload),
		Metadata: map[string]map[string]string{ports.BaseMetadataKey: {"run": "test"}},
	}
}

// TestLinearTransformChain: U upper-cases, R
// reverses, P wraps with a prefix/suffix. All three executors must
// produce the identical expected output.
func TestLinearTransformChain(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "U"},
				{ID: "R", DependsOn: []string{"U"}},
				{ID: "P", DependsOn: []string{"R"}},
			})
			require.NoError(t, err)

			processors := map[string]ports.Processor{
				"U": transformProc("U", upper),
				"R": transformProc("R", reverse),
				"P": transformProc("P", wrap(">>> ", " <<<")),
			}

			results, _, err := ex.Execute(context.Background(), processors, g, req("hello world"), ports.ContinueOnError, 4)
			require.NoError(t, err)
			require.Contains(t, results, "P")
			assert.Equal(t, ">>> DLROW OLLEH <<<", string(results["P"].NextPayload))
		})
	}
}

// TestDiamondWithAnalyzePeers: prepare lower-cases,
// token_counter and word_frequency (Analyze) run off it in parallel, and
// summary (Transform) sees the unmodified lower-cased payload plus both
// peers' namespaced metadata.
func TestDiamondWithAnalyzePeers(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "prepare"},
				{ID: "token_counter", DependsOn: []string{"prepare"}},
				{ID: "word_frequency", DependsOn: []string{"prepare"}},
				{ID: "summary", DependsOn: []string{"token_counter", "word_frequency"}},
			})
			require.NoError(t, err)

			var summaryPayload []byte
			var mu sync.Mutex

			processors := map[string]ports.Processor{
				"prepare": transformProc("prepare", func(b []byte) []byte {
					return []byte(strings.ToLower(string(b)))
				}),
				"token_counter": analyzeProc("token_counter", func(b []byte) map[string]string {
					return map[string]string{"tokens": "2"}
				}),
				"word_frequency": analyzeProc("word_frequency", func(b []byte) map[string]string {
					return map[string]string{"hello": "1", "world": "1"}
				}),
				"summary": &fakeProcessor{
					id:     "summary",
					intent: ports.Transform,
					fn: func(_ context.Context, r ports.ProcessorRequest) (ports.ProcessorResponse, error) {
						mu.Lock()
						summaryPayload = append([]byte(nil), r.Payload...)
						mu.Unlock()
						assert.Equal(t, map[string]string{"tokens": "2"}, r.Metadata["token_counter"])
						assert.Equal(t, map[string]string{"hello": "1", "world": "1"}, r.Metadata["word_frequency"])
						assert.Len(t, r.Metadata, 3) // __base__ + 2 deps, no more
						return ports.ProcessorResponse{NextPayload: r.Payload}, nil
					},
				},
			}

			results, meta, err := ex.Execute(context.Background(), processors, g, req("Hello World"), ports.ContinueOnError, 4)
			require.NoError(t, err)
			assert.Equal(t, "hello world", string(summaryPayload))
			require.Contains(t, results, "summary")
			assert.Contains(t, meta, "token_counter")
			assert.Contains(t, meta, "word_frequency")
		})
	}
}

// TestFailFastMidRun: a 4-node chain A->B->C->D
// where B fails. C and D must never be invoked, and the returned error
// names B.
func TestFailFastMidRun(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "A"},
				{ID: "B", DependsOn: []string{"A"}},
				{ID: "C", DependsOn: []string{"B"}},
				{ID: "D", DependsOn: []string{"C"}},
			})
			require.NoError(t, err)

			var cInvoked, dInvoked int32
			processors := map[string]ports.Processor{
				"A": transformProc("A", func(b []byte) []byte { return b }),
				"B": failingProc("B", ports.Transform),
				"C": transformProc("C", func(b []byte) []byte { atomic.AddInt32(&cInvoked, 1); return b }),
				"D": transformProc("D", func(b []byte) []byte { atomic.AddInt32(&dInvoked, 1); return b }),
			}

			_, _, err = ex.Execute(context.Background(), processors, g, req("x"), ports.FailFast, 4)
			require.Error(t, err)

			var pfe *engineerrors.ProcessorFailedError
			require.ErrorAs(t, err, &pfe)
			assert.Equal(t, "B", pfe.ID)

			// Give any stray goroutine a moment; none should have run C/D.
			time.Sleep(10 * time.Millisecond)
			assert.Equal(t, int32(0), atomic.LoadInt32(&cInvoked))
			assert.Equal(t, int32(0), atomic.LoadInt32(&dInvoked))
		})
	}
}

// TestContinueOnErrorPartial: same chain, B fails,
// ContinueOnError. A succeeds, B carries an Error outcome, C and D are
// absent (blocked).
func TestContinueOnErrorPartial(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "A"},
				{ID: "B", DependsOn: []string{"A"}},
				{ID: "C", DependsOn: []string{"B"}},
				{ID: "D", DependsOn: []string{"C"}},
			})
			require.NoError(t, err)

			processors := map[string]ports.Processor{
				"A": transformProc("A", func(b []byte) []byte { return b }),
				"B": failingProc("B", ports.Transform),
				"C": transformProc("C", func(b []byte) []byte { return b }),
				"D": transformProc("D", func(b []byte) []byte { return b }),
			}

			results, _, err := ex.Execute(context.Background(), processors, g, req("x"), ports.ContinueOnError, 4)
			require.NoError(t, err)

			require.Contains(t, results, "A")
			assert.False(t, results["A"].Failed())
			require.Contains(t, results, "B")
			assert.True(t, results["B"].Failed())
			assert.NotContains(t, results, "C")
			assert.NotContains(t, results, "D")
		})
	}
}

// TestParallelAnalyzeWidth: 10 Analyze processors
// depending on one Transform source, max_concurrency=4. At most 4 are
// ever in flight; all 10 complete; every inner metadata map is present,
// namespaced by id.
func TestParallelAnalyzeWidth(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			nodes := []graph.Node{{ID: "source"}}
			processors := map[string]ports.Processor{
				"source": transformProc("source", upper),
			}

			var inFlight, maxSeen int32
			for i := 0; i < 10; i++ {
				id := string(rune('a' + i))
				nodes = append(nodes, graph.Node{ID: id, DependsOn: []string{"source"}})
				processors[id] = &fakeProcessor{
					id:     id,
					intent: ports.Analyze,
					fn: func(_ context.Context, r ports.ProcessorRequest) (ports.ProcessorResponse, error) {
						n := atomic.AddInt32(&inFlight, 1)
						for {
							seen := atomic.LoadInt32(&maxSeen)
							if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
								break
							}
						}
						time.Sleep(2 * time.Millisecond)
						atomic.AddInt32(&inFlight, -1)
						return ports.ProcessorResponse{Metadata: map[string]string{"id": id}}, nil
					},
				}
			}

			g, err := graph.New(nodes)
			require.NoError(t, err)

			results, meta, err := ex.Execute(context.Background(), processors, g, req("hello"), ports.ContinueOnError, 4)
			require.NoError(t, err)

			assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(4))
			assert.Equal(t, []byte("HELLO"), results["source"].NextPayload)
			for i := 0; i < 10; i++ {
				id := string(rune('a' + i))
				require.Contains(t, results, id)
				assert.Contains(t, meta, id)
			}
		})
	}
}

// TestEmptyGraph: an empty graph returns empty results and only the base
// metadata bucket.
func TestEmptyGraph(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New(nil)
			require.NoError(t, err)

			results, meta, err := ex.Execute(context.Background(), map[string]ports.Processor{}, g, req("x"), ports.ContinueOnError, 4)
			require.NoError(t, err)
			assert.Empty(t, results)
			assert.Equal(t, map[string]map[string]string{ports.BaseMetadataKey: {"run": "test"}}, meta)
		})
	}
}

// TestAtMostOnceExecution: every processor's Process method is invoked at
// most once per run, even under
// concurrent fan-in (the diamond below has D depending on two branches).
func TestAtMostOnceExecution(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "A"},
				{ID: "B", DependsOn: []string{"A"}},
				{ID: "C", DependsOn: []string{"A"}},
				{ID: "D", DependsOn: []string{"B", "C"}},
			})
			require.NoError(t, err)

			counts := map[string]*int32{"A": new(int32), "B": new(int32), "C": new(int32), "D": new(int32)}
			processors := map[string]ports.Processor{}
			for id := range counts {
				id := id
				processors[id] = transformProc(id, func(b []byte) []byte {
					atomic.AddInt32(counts[id], 1)
					return b
				})
			}

			_, _, err = ex.Execute(context.Background(), processors, g, req("x"), ports.ContinueOnError, 4)
			require.NoError(t, err)
			for id, c := range counts {
				assert.Equal(t, int32(1), atomic.LoadInt32(c), "processor %s invoked more than once", id)
			}
		})
	}
}

// TestCycleGuard: a cyclic graph handed directly to an executor (bypassing
// graph.New) is rejected before any processor is invoked.
func TestCycleGuard(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			var invoked int32
			processors := map[string]ports.Processor{
				"A": transformProc("A", func(b []byte) []byte { atomic.AddInt32(&invoked, 1); return b }),
				"B": transformProc("B", func(b []byte) []byte { atomic.AddInt32(&invoked, 1); return b }),
			}

			_, _, err := ex.Execute(context.Background(), processors, cyclicGraph{}, req("x"), ports.ContinueOnError, 4)
			require.Error(t, err)
			assert.ErrorIs(t, err, engineerrors.ErrCycleDetected)
			assert.Equal(t, int32(0), atomic.LoadInt32(&invoked))
		})
	}
}

// TestDependencyOrder: every dependency reaches its terminal state strictly
// before its dependent is invoked.
func TestDependencyOrder(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "A"},
				{ID: "B", DependsOn: []string{"A"}},
				{ID: "C", DependsOn: []string{"A"}},
				{ID: "D", DependsOn: []string{"B", "C"}},
			})
			require.NoError(t, err)

			var mu sync.Mutex
			finished := map[string]bool{}
			processors := map[string]ports.Processor{}
			for _, id := range g.Nodes() {
				id := id
				deps := g.DepsOf(id)
				processors[id] = &fakeProcessor{
					id:     id,
					intent: ports.Transform,
					fn: func(_ context.Context, r ports.ProcessorRequest) (ports.ProcessorResponse, error) {
						mu.Lock()
						for _, dep := range deps {
							assert.True(t, finished[dep], "%s invoked before dependency %s finished", id, dep)
						}
						mu.Unlock()
						time.Sleep(time.Millisecond)
						mu.Lock()
						finished[id] = true
						mu.Unlock()
						return ports.ProcessorResponse{NextPayload: r.Payload}, nil
					},
				}
			}

			_, _, err = ex.Execute(context.Background(), processors, g, req("x"), ports.ContinueOnError, 4)
			require.NoError(t, err)
		})
	}
}

// TestAnalyzePayloadIgnored: a NextPayload returned by an Analyze processor
// never reaches the canonical payload, so downstream nodes still see the
// last Transform output.
func TestAnalyzePayloadIgnored(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "source"},
				{ID: "meddler", DependsOn: []string{"source"}},
				{ID: "sink", DependsOn: []string{"meddler"}},
			})
			require.NoError(t, err)

			var sinkPayload []byte
			var mu sync.Mutex
			processors := map[string]ports.Processor{
				"source": transformProc("source", upper),
				"meddler": &fakeProcessor{
					id:     "meddler",
					intent: ports.Analyze,
					fn: func(_ context.Context, r ports.ProcessorRequest) (ports.ProcessorResponse, error) {
						return ports.ProcessorResponse{NextPayload: []byte("junk")}, nil
					},
				},
				"sink": &fakeProcessor{
					id:     "sink",
					intent: ports.Transform,
					fn: func(_ context.Context, r ports.ProcessorRequest) (ports.ProcessorResponse, error) {
						mu.Lock()
						sinkPayload = append([]byte(nil), r.Payload...)
						mu.Unlock()
						return ports.ProcessorResponse{NextPayload: r.Payload}, nil
					},
				},
			}

			_, _, err = ex.Execute(context.Background(), processors, g, req("quiet"), ports.ContinueOnError, 4)
			require.NoError(t, err)
			assert.Equal(t, "QUIET", string(sinkPayload))
		})
	}
}

// TestSerialDeterminism: with max_concurrency 1, all three executors
// produce identical results for the same pipeline.
func TestSerialDeterminism(t *testing.T) {
	build := func() (ports.DependencyGraph, map[string]ports.Processor) {
		g, err := graph.New([]graph.Node{
			{ID: "U"},
			{ID: "R", DependsOn: []string{"U"}},
			{ID: "P", DependsOn: []string{"R"}},
		})
		if err != nil {
			panic(err)
		}
		return g, map[string]ports.Processor{
			"U": transformProc("U", upper),
			"R": transformProc("R", reverse),
			"P": transformProc("P", wrap("[", "]")),
		}
	}

	var reference map[string]ports.ProcessorResponse
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, processors := build()
			results, _, err := ex.Execute(context.Background(), processors, g, req("abc def"), ports.ContinueOnError, 1)
			require.NoError(t, err)
			if reference == nil {
				reference = results
				return
			}
			require.Len(t, results, len(reference))
			for id, want := range reference {
				assert.Equal(t, string(want.NextPayload), string(results[id].NextPayload), "node %s diverged", id)
			}
		})
	}
}

// TestPanicConvertedToFailure: a panicking processor is recovered at the
// task boundary and treated exactly like one that returned an error.
func TestPanicConvertedToFailure(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{
				{ID: "boom"},
				{ID: "after", DependsOn: []string{"boom"}},
			})
			require.NoError(t, err)

			processors := map[string]ports.Processor{
				"boom": &fakeProcessor{
					id:     "boom",
					intent: ports.Transform,
					fn: func(_ context.Context, _ ports.ProcessorRequest) (ports.ProcessorResponse, error) {
						panic("kaboom")
					},
				},
				"after": transformProc("after", func(b []byte) []byte { return b }),
			}

			results, _, err := ex.Execute(context.Background(), processors, g, req("x"), ports.ContinueOnError, 2)
			require.NoError(t, err)
			require.Contains(t, results, "boom")
			assert.True(t, results["boom"].Failed())
			assert.Contains(t, results["boom"].Err.Error(), "panicked")
			assert.NotContains(t, results, "after")
		})
	}
}

// TestProcessorNotFound: a graph node with no registered processor is a
// precondition violation reported before anything runs.
func TestProcessorNotFound(t *testing.T) {
	for name, ex := range strategies() {
		t.Run(name, func(t *testing.T) {
			g, err := graph.New([]graph.Node{{ID: "A"}})
			require.NoError(t, err)

			_, _, err = ex.Execute(context.Background(), map[string]ports.Processor{}, g, req("x"), ports.ContinueOnError, 1)
			require.Error(t, err)
			var nf *engineerrors.ProcessorNotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, "A", nf.ID)
		})
	}
}
