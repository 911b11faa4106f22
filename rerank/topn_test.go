package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/carkit/core"
)

func scored(scores ...float64) []*core.Item {
	out := make([]*core.Item, len(scores))
	for i, s := range scores {
		out[i] = core.NewItem(int64(i + 1))
		out[i].Score = s
	}
	return out
}

func TestTopNNode(t *testing.T) {
	tests := []struct {
		name    string
		node    *TopNNode
		limit   int
		wantIDs []int64
	}{
		{"no limit", &TopNNode{}, 0, []int64{1, 2, 3}},
		{"configured n", &TopNNode{N: 2}, 0, []int64{1, 2}},
		{"request limit wins", &TopNNode{N: 2}, 1, []int64{1}},
		{"n larger than items", &TopNNode{N: 10}, 0, []int64{1, 2, 3}},
		{"sort by score stable", &TopNNode{N: 2, SortByScore: true}, 0, []int64{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.node.Process(context.Background(), &core.RecommendContext{Limit: tt.limit}, scored(1, 3, 3))
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != len(tt.wantIDs) {
				t.Fatalf("len = %d, want %d", len(out), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if out[i].ID != id {
					t.Fatalf("out[%d] = %d, want %d", i, out[i].ID, id)
				}
			}
		})
	}
}
