package core

import "fmt"

// Feature 是参与相似度计算的数值特征，封闭枚举。
// 特征列表始终按名字解析，偏好向量与候选行逐名对齐，而不是按位置巧合对齐。
type Feature int

const (
	FeatureHorsepower Feature = iota // 马力
	FeatureTotalSpeed                // 最高时速
	FeaturePrice                     // 价格
	FeatureSeats                     // 座位数
)

var featureNames = [...]string{
	FeatureHorsepower: "horsepower",
	FeatureTotalSpeed: "total_speed",
	FeaturePrice:      "price",
	FeatureSeats:      "seats",
}

// AllFeatures 按规范顺序返回全部特征。
func AllFeatures() []Feature {
	return []Feature{FeatureHorsepower, FeatureTotalSpeed, FeaturePrice, FeatureSeats}
}

func (f Feature) String() string {
	if f < 0 || int(f) >= len(featureNames) {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// Valid 判断是否为已知特征
func (f Feature) Valid() bool {
	return f >= 0 && int(f) < len(featureNames)
}

// ParseFeature 按名字解析特征。
func ParseFeature(name string) (Feature, error) {
	for i, n := range featureNames {
		if n == name {
			return Feature(i), nil
		}
	}
	return 0, NewInvalidInput(ModuleFeature, fmt.Sprintf("feature: unknown feature %q", name))
}

// MarshalText 让 Feature 可以作为 JSON/YAML 的 key 或值使用
func (f Feature) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("feature: invalid feature %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *Feature) UnmarshalText(text []byte) error {
	parsed, err := ParseFeature(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FeatureSet 是一次请求里每个特征的启用状态。
type FeatureSet map[Feature]bool

// NewFeatureSet 创建启用了给定特征的 FeatureSet
func NewFeatureSet(features ...Feature) FeatureSet {
	fs := make(FeatureSet, len(features))
	for _, f := range features {
		fs[f] = true
	}
	return fs
}

// Enabled 按规范顺序返回启用的特征
func (fs FeatureSet) Enabled() []Feature {
	out := make([]Feature, 0, len(fs))
	for _, f := range AllFeatures() {
		if fs[f] {
			out = append(out, f)
		}
	}
	return out
}
