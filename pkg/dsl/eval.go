package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/carkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("car", cel.DynType),
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
		// price > 100000 这类 double 与 int 字面量的比较
		cel.CrossTypeNumericComparisons(true),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译后的布尔表达式。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：car.price <= 80000 / car.horsepower > 300 && car.seats >= 4
//   - 字符串：car.fuel_type == "Petrol" / car.company_name.startsWith("Ferr")
//   - 空值：car.price != null && car.price < 50000
//   - 召回信息：item.distance < 1.5 / label.recall_source == "usercf"
//
// 为空的数值字段以 null 传入；在 null 上做数值比较会求值失败，Match 把这种情况视为不匹配。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。语法错误或返回值不是 bool 时返回 INVALID_INPUT。
//
// 不做全局缓存：表达式可能来自请求参数。配置中的表达式在构建节点时编译一次，
// 请求表达式每个请求编译一次（见 filter.ExprFilter.Prepare）。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.NewInvalidInput(core.ModuleService, fmt.Sprintf("expr: compile %q: %v", expr, issues.Err()))
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, core.NewInvalidInput(core.ModuleService, fmt.Sprintf("expr: %q must return bool, got %v", expr, ast.OutputType()))
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("expr: program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回表达式原文
func (p *Program) String() string {
	return p.expr
}

// Evaluate 执行表达式，返回布尔结果。
func (p *Program) Evaluate(input map[string]any) (bool, error) {
	out, _, err := p.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("expr: eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expr: %q must return boolean, got %T", p.expr, out.Value())
	}
	return result, nil
}

// MatchCar 对单辆车求值；求值失败视为不匹配。
func (p *Program) MatchCar(car *core.Car) bool {
	ok, err := p.Evaluate(map[string]any{
		"car":   CarInput(car),
		"item":  map[string]any{},
		"label": map[string]any{},
		"rctx":  map[string]any{},
	})
	return err == nil && ok
}

// MatchItem 对链路中的 Item 求值；求值失败视为不匹配。
func (p *Program) MatchItem(item *core.Item, rctx *core.RecommendContext) bool {
	ok, err := p.Evaluate(buildInput(item, rctx))
	return err == nil && ok
}

// CarInput 把车辆转换为 CEL 输入；空的数值字段为 null。
func CarInput(c *core.Car) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	m := map[string]any{
		"id":           c.ID,
		"company_name": c.CompanyName,
		"car_name":     c.CarName,
		"engine":       c.Engine,
		"fuel_type":    c.FuelType,
		"horsepower":   nullable(c.Horsepower),
		"total_speed":  nullable(c.TotalSpeed),
		"price":        nullable(c.Price),
		"seats":        nil,
	}
	if c.Seats != nil {
		m["seats"] = int64(*c.Seats)
	}
	return m
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// buildInput 构建 Item 维度的 CEL 输入
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = v.Value
	}

	item := map[string]any{
		"id":    it.ID,
		"score": it.Score,
	}
	if d, ok := it.Distance(); ok {
		item["distance"] = d
	}

	rc := map[string]any{}
	if rctx != nil {
		rc["user_id"] = rctx.UserID
		if rctx.Params != nil {
			rc["params"] = rctx.Params
		}
	}

	return map[string]any{
		"car":   CarInput(it.Car),
		"item":  item,
		"label": labels,
		"rctx":  rc,
	}
}
