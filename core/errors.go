package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），也支持 errors.Is（按 Module + Code 比较）
//
// 使用场景：
//   - 特征错误：INSUFFICIENT_FEATURES（偏好向量没有任何可用数值特征）
//   - 召回错误：EMPTY_DATASET（过滤后没有候选车辆）、NO_RATINGS_YET（用户尚未评分）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "EMPTY_DATASET"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "feature", "recall"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 让 errors.Is 在 fmt.Errorf("%w") 包装后仍能识别领域错误。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Module == t.Module
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError（会沿 Unwrap 链查找），如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok {
			return domainErr
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐错误代码
	ErrorCodeInsufficientFeatures = "INSUFFICIENT_FEATURES" // 没有可用的数值特征
	ErrorCodeEmptyDataset         = "EMPTY_DATASET"         // 没有可比较的候选
	ErrorCodeNoRatingsYet         = "NO_RATINGS_YET"        // 用户还没有评分记录
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 存储模块
	ModuleFeature = "feature" // 特征模块
	ModuleRecall  = "recall"  // 召回模块
	ModuleService = "service" // 服务模块
)

// 推荐核心对外暴露的三种错误，调用方据此给出纠正动作。
var (
	// ErrInsufficientFeatures 偏好向量中没有任何非空的数值特征，需要用户补充输入
	ErrInsufficientFeatures = NewDomainError(ModuleFeature, ErrorCodeInsufficientFeatures, "feature: no usable numeric feature in preference vector")

	// ErrEmptyDataset 过滤后没有候选车辆，需要放宽过滤条件
	ErrEmptyDataset = NewDomainError(ModuleRecall, ErrorCodeEmptyDataset, "recall: no candidates left to compare against")

	// ErrNoRatingsYet 用户还没有评分，需要先完成评分问卷
	ErrNoRatingsYet = NewDomainError(ModuleRecall, ErrorCodeNoRatingsYet, "recall: user has not rated any cars yet")
)

// NewInvalidInput 创建 INVALID_INPUT 错误
func NewInvalidInput(module, message string) *DomainError {
	return NewDomainError(module, ErrorCodeInvalidInput, message)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsInsufficientFeatures 检查错误是否为 INSUFFICIENT_FEATURES
func IsInsufficientFeatures(err error) bool { return hasCode(err, ErrorCodeInsufficientFeatures) }

// IsEmptyDataset 检查错误是否为 EMPTY_DATASET
func IsEmptyDataset(err error) bool { return hasCode(err, ErrorCodeEmptyDataset) }

// IsNoRatingsYet 检查错误是否为 NO_RATINGS_YET
func IsNoRatingsYet(err error) bool { return hasCode(err, ErrorCodeNoRatingsYet) }
