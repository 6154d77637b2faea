package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - Engine 错误：NO_DATA（目录为空）
//   - Hybrid 错误：MISALIGNED（两个相似度矩阵索引不一致）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Feature 错误：INVALID_INPUT（重复 ID 等）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "NO_DATA"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "feature", "hybrid"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 让 errors.Is 按 Module+Code 匹配哨兵错误。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误链中是否有 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
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

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
	ErrorCodeNoData        = "NO_DATA"        // 没有可计算的数据
	ErrorCodeMisaligned    = "MISALIGNED"     // 矩阵索引不一致
	ErrorCodeBusy          = "BUSY"           // 已有任务在运行
	ErrorCodeUnauthorized  = "UNAUTHORIZED"   // 缺少或无效的凭证
	ErrorCodeForbidden     = "FORBIDDEN"      // 凭证有效但权限不足
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 存储模块
	ModuleFeature = "feature" // 特征模块
	ModuleRecall  = "recall"  // 相似度模型
	ModuleHybrid  = "hybrid"  // 混合模块
	ModuleEngine  = "engine"  // 批处理引擎
	ModuleService = "service" // 服务模块
)

var (
	// ErrNoContent 表示内容目录为空，整轮计算中止，不写入任何结果。
	ErrNoContent = NewDomainError(ModuleEngine, ErrorCodeNoData, "engine: no content in catalog")

	// ErrIndexMismatch 表示参与混合的两个相似度矩阵索引集合不一致。
	ErrIndexMismatch = NewDomainError(ModuleHybrid, ErrorCodeMisaligned, "hybrid: similarity matrices are not aligned")

	// ErrRunInProgress 表示已有一轮计算在运行。
	ErrRunInProgress = NewDomainError(ModuleService, ErrorCodeBusy, "service: a recommendation run is already in progress")
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsNoData 检查错误是否为 NO_DATA
func IsNoData(err error) bool {
	return hasCode(err, ErrorCodeNoData)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
