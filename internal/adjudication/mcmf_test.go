package adjudication

import "testing"

func TestMinCostMaxFlowSimpleBipartite(t *testing.T) {
	// source(0) -> {1,2} -> {3,4} -> sink(5), a 2x2 assignment problem
	// where the cheap diagonal (1-3, 2-4) should be chosen over the
	// expensive cross pairing.
	g := newMCMFGraph(6)
	const source, sink = 0, 5
	g.addEdge(source, 1, 1, 0)
	g.addEdge(source, 2, 1, 0)
	e13 := g.addEdge(1, 3, 1, 1)
	e14 := g.addEdge(1, 4, 1, 10)
	e23 := g.addEdge(2, 3, 1, 10)
	e24 := g.addEdge(2, 4, 1, 1)
	g.addEdge(3, sink, 1, 0)
	g.addEdge(4, sink, 1, 0)

	flow, cost := g.minCostMaxFlow(source, sink)
	if flow != 2 {
		t.Fatalf("expected max flow 2, got %d", flow)
	}
	if cost != 2 {
		t.Fatalf("expected min cost 2 (1+1), got %v", cost)
	}
	if g.flowOf(e13) != 1 || g.flowOf(e24) != 1 {
		t.Errorf("expected the cheap diagonal to carry flow")
	}
	if g.flowOf(e14) != 0 || g.flowOf(e23) != 0 {
		t.Errorf("expected the expensive cross pairing to carry no flow")
	}
}

func TestMinCostMaxFlowRespectsCapacity(t *testing.T) {
	g := newMCMFGraph(4)
	const source, sink = 0, 3
	g.addEdge(source, 1, 2, 0)
	e := g.addEdge(1, 2, 1, 0) // bottleneck capacity 1
	g.addEdge(2, sink, 2, 0)

	flow, _ := g.minCostMaxFlow(source, sink)
	if flow != 1 {
		t.Fatalf("expected flow limited by the capacity-1 edge, got %d", flow)
	}
	if g.flowOf(e) != 1 {
		t.Errorf("expected bottleneck edge to carry 1 unit of flow")
	}
}

func TestMinCostMaxFlowNoPath(t *testing.T) {
	g := newMCMFGraph(3)
	// node 1 is disconnected from sink.
	g.addEdge(0, 1, 1, 0)
	flow, cost := g.minCostMaxFlow(0, 2)
	if flow != 0 || cost != 0 {
		t.Fatalf("expected zero flow/cost when sink is unreachable, got flow=%d cost=%v", flow, cost)
	}
}
