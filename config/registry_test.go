package config_test

import (
	"strings"
	"testing"

	"github.com/rushteam/hybridrec/config"
	_ "github.com/rushteam/hybridrec/config/builders"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/rank"
	"github.com/rushteam/hybridrec/rerank"
)

func TestSupportedTypes(t *testing.T) {
	types := strings.Join(config.SupportedTypes(), ",")
	for _, want := range []string{"filter", "rank.hybrid_cf", "recall.catalog", "rerank.reason", "rerank.topn"} {
		if !strings.Contains(types, want) {
			t.Errorf("SupportedTypes() missing %s: %s", want, types)
		}
	}
}

func TestBuildDefaultPipeline(t *testing.T) {
	p, err := config.BuildPipeline(nil)
	if err != nil {
		t.Fatalf("BuildPipeline(nil) error = %v", err)
	}
	wantKinds := []pipeline.Kind{
		pipeline.KindRecall,
		pipeline.KindFilter,
		pipeline.KindRank,
		pipeline.KindReRank,
		pipeline.KindPostProcess,
	}
	if len(p.Nodes) != len(wantKinds) {
		t.Fatalf("nodes = %d, want %d", len(p.Nodes), len(wantKinds))
	}
	for i, k := range wantKinds {
		if p.Nodes[i].Kind() != k {
			t.Errorf("node %d kind = %s, want %s", i, p.Nodes[i].Kind(), k)
		}
	}
	if n, ok := p.Nodes[2].(*rank.HybridCFNode); !ok || n.Threshold != 0.1 {
		t.Errorf("rank node = %#v", p.Nodes[2])
	}
	if n, ok := p.Nodes[3].(*rerank.TopNNode); !ok || n.N != 20 {
		t.Errorf("topn node = %#v", p.Nodes[3])
	}
}

func TestValidatePipelineConfig(t *testing.T) {
	cfg, err := pipeline.Parse([]byte(`
pipeline:
  name: broken
  nodes:
    - type: rank.unknown
`))
	if err != nil {
		t.Fatal(err)
	}
	err = config.ValidatePipelineConfig(cfg)
	if err == nil || !strings.Contains(err.Error(), "rank.unknown") {
		t.Fatalf("ValidatePipelineConfig() error = %v", err)
	}
}

func TestBuildPipelineRejectsBadNodeConfig(t *testing.T) {
	tests := []string{
		"pipeline:\n  nodes:\n    - type: rerank.topn\n      config:\n        n: 0\n",
		"pipeline:\n  nodes:\n    - type: rank.hybrid_cf\n      config:\n        threshold: 1.5\n",
		"pipeline:\n  nodes:\n    - type: filter\n      config:\n        filters:\n          - type: expr\n            expr: \"item.id ==\"\n",
		"pipeline:\n  nodes:\n    - type: filter\n      config:\n        filters:\n          - type: nope\n",
	}
	for _, src := range tests {
		cfg, err := pipeline.Parse([]byte(src))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := config.BuildPipeline(cfg); err == nil {
			t.Errorf("expected build error for:\n%s", src)
		}
	}
}
