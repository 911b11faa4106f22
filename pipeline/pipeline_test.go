package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/carkit/core"
)

type appendNode struct {
	name string
	id   int64
	err  error
}

func (n *appendNode) Name() string { return n.name }
func (n *appendNode) Kind() Kind   { return KindRecall }
func (n *appendNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewItem(n.id)), nil
}

func TestPipelineRun(t *testing.T) {
	p := &Pipeline{Name: "test", Nodes: []Node{
		&appendNode{name: "a", id: 1},
		&appendNode{name: "b", id: 2},
	}}
	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(items) != 2 || items[0].ID != 1 || items[1].ID != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestPipelineRunStopsOnError(t *testing.T) {
	p := &Pipeline{Name: "test", Nodes: []Node{
		&appendNode{name: "a", id: 1},
		&appendNode{name: "b", err: core.ErrEmptyDataset},
		&appendNode{name: "c", id: 3},
	}}
	_, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if !errors.Is(err, core.ErrEmptyDataset) {
		t.Fatalf("err = %v, want EmptyDataset", err)
	}
}

func TestPipelineRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Nodes: []Node{&appendNode{name: "a", id: 1}}}
	if _, err := p.Run(ctx, &core.RecommendContext{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

const testYAML = `
pipelines:
  - name: first
    nodes:
      - type: test.append
        config:
          id: 7
  - name: second
    nodes:
      - type: test.append
`

func TestConfigBuildAll(t *testing.T) {
	cfg, err := ParseYAML([]byte(testYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	f := NewNodeFactory()
	f.Register("test.append", func(c map[string]any) (Node, error) {
		id, _ := c["id"].(int)
		return &appendNode{name: "test.append", id: int64(id)}, nil
	})

	ps, err := cfg.BuildAll(f)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("got %d pipelines, want 2", len(ps))
	}
	items, err := ps["first"].Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil || len(items) != 1 || items[0].ID != 7 {
		t.Fatalf("first pipeline: items=%v err=%v", items, err)
	}
}

func TestConfigUnknownNode(t *testing.T) {
	cfg, err := ParseJSON([]byte(`{"pipelines":[{"name":"x","nodes":[{"type":"nope"}]}]}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if _, err := cfg.BuildAll(NewNodeFactory()); err == nil {
		t.Fatal("expected error for unknown node type")
	}
}

func TestConfigDuplicateName(t *testing.T) {
	cfg := &Config{Pipelines: []PipelineConfig{{Name: "a"}, {Name: "a"}}}
	if _, err := cfg.BuildAll(NewNodeFactory()); err == nil {
		t.Fatal("expected duplicate pipeline error")
	}
}

type stageNode struct {
	name string
	kind Kind
}

func (n *stageNode) Name() string { return n.name }
func (n *stageNode) Kind() Kind   { return n.kind }
func (n *stageNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return items, nil
}

func TestPipelineValidate(t *testing.T) {
	recall := &stageNode{name: "recall.knn", kind: KindRecall}
	topn := &stageNode{name: "rerank.topn", kind: KindReRank}

	tests := []struct {
		name    string
		nodes   []Node
		wantErr bool
	}{
		{"recall then rerank", []Node{recall, topn}, false},
		{"empty", nil, true},
		{"no recall", []Node{topn}, true},
		{"second recall", []Node{recall, topn, recall}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Pipeline{Name: "p", Nodes: tt.nodes}).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
