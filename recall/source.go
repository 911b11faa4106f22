package recall

import (
	"context"

	"github.com/rushteam/carkit/core"
)

// Source 表示一个可复用的召回源（knn / usercf / popularity）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// 召回来源 label 的取值
const (
	LabelRecallSource = "recall_source"
	LabelFallback     = "fallback"

	SourceKNN        = "knn"
	SourceUserCF     = "usercf"
	SourcePopularity = "popularity"
)

func limitOr(rctx *core.RecommendContext, fallback int) int {
	if rctx != nil && rctx.Limit > 0 {
		return rctx.Limit
	}
	return fallback
}
