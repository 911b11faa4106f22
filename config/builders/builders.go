package builders

import (
	"fmt"

	"github.com/rushteam/carkit/config"
	"github.com/rushteam/carkit/feature"
	"github.com/rushteam/carkit/filter"
	"github.com/rushteam/carkit/pipeline"
	"github.com/rushteam/carkit/pkg/conv"
	"github.com/rushteam/carkit/recall"
	"github.com/rushteam/carkit/rerank"
)

func init() {
	config.Register("recall.knn", BuildKNNNode)
	config.Register("recall.usercf", BuildUserCFNode)
	config.Register("recall.popularity", BuildPopularityNode)
	config.Register("filter", BuildFilterNode)
	config.Register("feature.enrich", BuildFeatureEnrichNode)
	config.Register("rerank.topn", BuildTopNNode)
}

func BuildKNNNode(deps config.Deps, cfg map[string]any) (pipeline.Node, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("recall.knn: catalog store is required")
	}
	return &recall.KNNRecall{
		Catalog: deps.Catalog,
		K:       int(conv.ConfigGetInt64(cfg, "k", 0)),
	}, nil
}

func BuildUserCFNode(deps config.Deps, cfg map[string]any) (pipeline.Node, error) {
	if deps.Ratings == nil {
		return nil, fmt.Errorf("recall.usercf: rating store is required")
	}
	workers := int(conv.ConfigGetInt64(cfg, "workers", int64(deps.Workers)))
	return &recall.UserBasedCF{
		Ratings:    deps.Ratings,
		Candidates: int(conv.ConfigGetInt64(cfg, "candidates", 0)),
		Workers:    workers,
	}, nil
}

func BuildPopularityNode(deps config.Deps, cfg map[string]any) (pipeline.Node, error) {
	if deps.Ratings == nil {
		return nil, fmt.Errorf("recall.popularity: rating store is required")
	}
	return &recall.Popularity{
		Ratings:    deps.Ratings,
		Candidates: int(conv.ConfigGetInt64(cfg, "candidates", 0)),
	}, nil
}

func BuildFilterNode(deps config.Deps, cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "rated":
			filters = append(filters, filter.NewRatedFilter(deps.Ratings))
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(conv.SliceAnyToInt64(filterMap["car_ids"])))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func BuildFeatureEnrichNode(deps config.Deps, _ map[string]any) (pipeline.Node, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("feature.enrich: catalog store is required")
	}
	return &feature.EnrichNode{Catalog: deps.Catalog}, nil
}

func BuildTopNNode(_ config.Deps, cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{
		N:           int(conv.ConfigGetInt64(cfg, "n", 0)),
		SortByScore: conv.ConfigGet(cfg, "sort_by_score", false),
	}, nil
}
