package core

// Car 是车型目录中的一条记录（目录实体）。
// 数值字段可能为空（数据源缺失），推荐核心只读，不修改。
type Car struct {
	ID          int64    `json:"id"`
	CompanyName string   `json:"company_name"`
	CarName     string   `json:"car_name"`
	Engine      string   `json:"engine"`
	FuelType    string   `json:"fuel_type"`
	Horsepower  *float64 `json:"horsepower"`
	TotalSpeed  *float64 `json:"total_speed"`
	Price       *float64 `json:"price"`
	Seats       *int     `json:"seats"`
}

// Value 读取数值特征，字段为空时返回 false。
func (c *Car) Value(f Feature) (float64, bool) {
	if c == nil {
		return 0, false
	}
	switch f {
	case FeatureHorsepower:
		return deref(c.Horsepower)
	case FeatureTotalSpeed:
		return deref(c.TotalSpeed)
	case FeaturePrice:
		return deref(c.Price)
	case FeatureSeats:
		if c.Seats == nil {
			return 0, false
		}
		return float64(*c.Seats), true
	}
	return 0, false
}

// Values 返回所有非空数值特征
func (c *Car) Values() map[Feature]float64 {
	out := make(map[Feature]float64, 4)
	for _, f := range AllFeatures() {
		if v, ok := c.Value(f); ok {
			out[f] = v
		}
	}
	return out
}

func (c *Car) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.CompanyName + " " + c.CarName
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Float 返回 v 的指针，便于构造可空字段。
func Float(v float64) *float64 { return &v }

// Int 返回 v 的指针
func Int(v int) *int { return &v }
