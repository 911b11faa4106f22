package core

// RecommendContext 承载一次推荐请求的用户/偏好/约束信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// UserID 为 0 表示匿名请求（只能使用基于内容的推荐）
	UserID int64

	// Preference 是目标特征值，knn 召回使用
	Preference *PreferenceVector

	// Features 是调用方选择的特征；为空时使用 Preference 中启用的全部特征
	Features FeatureSet

	// Query 是候选集约束（公司、油耗类型、区间、排除 ID、CEL 表达式）
	Query *CatalogQuery

	// Ratings 是当前用户的评分画像，由 Service 预先加载，避免各节点重复读取
	Ratings RatingProfile

	// Limit 请求的结果数，<= 0 时由节点使用默认值
	Limit int

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	Labels map[string]Label

	// Params 请求级参数，例如 reference_car_id
	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (Label, bool) {
	if rctx.Labels == nil {
		return Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ActiveFeatures 返回本次请求实际参与距离计算的特征（规范顺序）。
func (rctx *RecommendContext) ActiveFeatures() []Feature {
	if rctx == nil || rctx.Preference == nil {
		return nil
	}
	pref := rctx.Preference
	if len(rctx.Features) > 0 {
		pref = pref.Restrict(rctx.Features)
	}
	return pref.Active()
}
