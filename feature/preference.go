package feature

import "github.com/rushteam/carkit/core"

// Midpoint 返回区间的中点：两端都有取中点，只有一端直接使用该端，都没有返回 false。
func Midpoint(r core.Range) (float64, bool) {
	switch {
	case r.Min != nil && r.Max != nil:
		return (*r.Min + *r.Max) / 2, true
	case r.Min != nil:
		return *r.Min, true
	case r.Max != nil:
		return *r.Max, true
	}
	return 0, false
}

// PreferenceFromRanges 用每个特征区间的中点构造偏好向量；没有边界的特征不启用。
func PreferenceFromRanges(ranges map[core.Feature]core.Range) *core.PreferenceVector {
	pref := core.NewPreferenceVector()
	for f, r := range ranges {
		if !f.Valid() {
			continue
		}
		if v, ok := Midpoint(r); ok {
			pref.Set(f, v)
		}
	}
	return pref
}

// PreferenceFromCar 复制参考车辆的数值特征；为空的特征不启用。
func PreferenceFromCar(car *core.Car) *core.PreferenceVector {
	pref := core.NewPreferenceVector()
	for f, v := range car.Values() {
		pref.Set(f, v)
	}
	return pref
}
