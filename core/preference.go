package core

// PreferenceVector 是调用方给出的目标特征值，每次请求临时构造，不持久化。
// 只有非空的特征是“启用”的。
type PreferenceVector struct {
	values map[Feature]float64
}

// NewPreferenceVector 创建空的偏好向量
func NewPreferenceVector() *PreferenceVector {
	return &PreferenceVector{values: make(map[Feature]float64)}
}

// Set 设置特征目标值
func (p *PreferenceVector) Set(f Feature, v float64) *PreferenceVector {
	if p.values == nil {
		p.values = make(map[Feature]float64)
	}
	p.values[f] = v
	return p
}

// Unset 把特征置空（不参与计算）
func (p *PreferenceVector) Unset(f Feature) {
	delete(p.values, f)
}

// Get 读取特征目标值，未设置时返回 false
func (p *PreferenceVector) Get(f Feature) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.values[f]
	return v, ok
}

// Active 按规范顺序返回启用的特征。
func (p *PreferenceVector) Active() []Feature {
	out := make([]Feature, 0, len(featureNames))
	if p == nil {
		return out
	}
	for _, f := range AllFeatures() {
		if _, ok := p.values[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Restrict 只保留 fs 中启用的特征，返回新的偏好向量。
func (p *PreferenceVector) Restrict(fs FeatureSet) *PreferenceVector {
	out := NewPreferenceVector()
	if p == nil {
		return out
	}
	for f, v := range p.values {
		if fs[f] {
			out.values[f] = v
		}
	}
	return out
}

// Values 返回启用特征的拷贝
func (p *PreferenceVector) Values() map[Feature]float64 {
	out := make(map[Feature]float64)
	if p == nil {
		return out
	}
	for f, v := range p.values {
		out[f] = v
	}
	return out
}
