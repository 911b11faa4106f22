package core

import "context"

// CatalogStore 是车型目录的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 推荐核心把它当作同步读取：一次返回完整集合，没有部分结果、重试或超时
//
// 实现：
//   - store.MemoryCatalog（测试/开发）
//   - store.SQLStore（SQLite / PostgreSQL）
type CatalogStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// ListCars 按条件读取车辆，按 company_name、id 排序；q 为 nil 表示全部
	ListCars(ctx context.Context, q *CatalogQuery) ([]*Car, error)

	// GetCar 按 ID 读取，不存在时返回 ErrStoreNotFound
	GetCar(ctx context.Context, id int64) (*Car, error)

	// BatchGetCars 批量读取，不存在的 ID 不出现在结果中
	BatchGetCars(ctx context.Context, ids []int64) (map[int64]*Car, error)

	// FindCar 按公司名 + 车型名查找第一条记录（按 ID 升序），不存在时返回 ErrStoreNotFound
	FindCar(ctx context.Context, companyName, carName string) (*Car, error)

	// Distinct 返回某个类别字段的去重取值（company_name / car_name / engine），已排序
	Distinct(ctx context.Context, field string, q *CatalogQuery) ([]string, error)
}

// RatingStore 是用户评分的领域接口。
//
// 唯一性约束（每个用户对每辆车最多一条评分）由实现保证，推荐核心直接使用。
//
// 实现：
//   - store.MemoryRatings
//   - store.SQLStore
//   - store.RedisRatingStore
type RatingStore interface {
	Name() string

	// GetUserRatings 返回单个用户的评分画像；没有评分时返回空 map
	GetUserRatings(ctx context.Context, userID int64) (RatingProfile, error)

	// GetAllRatings 返回所有有评分的用户的画像，按用户分组
	GetAllRatings(ctx context.Context) (map[int64]RatingProfile, error)

	// GetAverageRatings 返回每辆车在所有用户中的平均评分（只含被评过的车）
	GetAverageRatings(ctx context.Context) (map[int64]float64, error)

	// SaveRating 写入或覆盖 (user, car) 的评分
	SaveRating(ctx context.Context, entry RatingEntry) error
}

// Catalog 的类别字段名，用于 Distinct
const (
	FieldCompanyName = "company_name"
	FieldCarName     = "car_name"
	FieldEngine      = "engine"
)

// Store 错误定义（使用统一的 DomainError）
var (
	// ErrStoreNotFound 表示记录不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: record not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")
)

// IsStoreNotFound 检查错误是否为记录不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	if domainErr != nil && domainErr.Module == ModuleStore {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}
