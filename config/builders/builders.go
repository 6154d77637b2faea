package builders

import (
	"fmt"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/conv"
	"github.com/rushteam/hybridrec/rank"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/rerank"
)

func init() {
	config.Register("recall.catalog", BuildCatalogNode)
	config.Register("recall.hot", BuildHotNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rank.hybrid_cf", BuildHybridCFNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.reason", BuildReasonNode)
}

func BuildCatalogNode(_ map[string]interface{}) (pipeline.Node, error) {
	return &recall.CatalogRecall{}, nil
}

func BuildHotNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &recall.Hot{
		IDs:   int64IDs(cfg["ids"]),
		Limit: int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func BuildHybridCFNode(cfg map[string]interface{}) (pipeline.Node, error) {
	threshold := conv.ConfigGetFloat64(cfg, "threshold", rank.DefaultSimilarityThreshold)
	if threshold < 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be in [0, 1), got %v", threshold)
	}
	return &rank.HybridCFNode{Threshold: threshold}, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "n", rerank.DefaultTopN)
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}
	return &rerank.TopNNode{N: int(n)}, nil
}

func BuildReasonNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.ReasonNode{Reason: conv.ConfigGet(cfg, "reason", rerank.DefaultReason)}, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "rated":
			filters = append(filters, &filter.RatedFilter{})
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(int64IDs(filterMap["item_ids"])))
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

	return &filter.FilterNode{
		Filters: filters,
		Strict:  conv.ConfigGet(cfg, "strict", false),
	}, nil
}

// int64IDs 把 YAML/JSON 中的 ID 列表（int 或 float64）转为 []int64。
func int64IDs(v any) []int64 {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	return conv.ConvertSlice(raw, func(e any) (int64, bool) {
		f, ok := conv.ToFloat64(e)
		return int64(f), ok
	})
}
