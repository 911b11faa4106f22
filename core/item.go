package core

// Item 是推荐链路中的统一承载结构：车辆 ID、分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
//
// Score 的语义取决于召回源：
//   - knn: 1 / (1 + 欧氏距离)，越大越近，原始距离保存在 Meta["distance"]
//   - usercf: 协同过滤得分（保留两位小数）
//   - popularity: 平均评分
type Item struct {
	ID     int64
	Score  float64
	Car    *Car
	Meta   map[string]any
	Labels map[string]Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// PutMeta 写入元信息
func (it *Item) PutMeta(key string, v any) {
	if it.Meta == nil {
		it.Meta = make(map[string]any)
	}
	it.Meta[key] = v
}

// Distance 返回 knn 召回写入的距离
func (it *Item) Distance() (float64, bool) {
	if it.Meta == nil {
		return 0, false
	}
	d, ok := it.Meta["distance"].(float64)
	return d, ok
}
