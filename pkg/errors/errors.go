package errors

import (
	"errors"
	"fmt"
)

// ── 错误分类哨兵 ──
// 具体错误类型通过 Is 方法归类，调用方统一使用 errors.Is 判断。

var (
	// ErrValidation 输入不合法：在任何写操作之前拒绝，整体生效或整体拒绝
	ErrValidation = errors.New("参数校验失败")
	// ErrConflict 乐观并发冲突：预期影响行数与实际不符，调用方应重新读取后重试
	ErrConflict = errors.New("数据已被其他操作修改，请刷新后重试")
	// ErrConfiguration 配置/运维层面拒绝执行（如不安全的清理），不可自动重试
	ErrConfiguration = errors.New("配置错误，操作被拒绝")
	// ErrNotFound 引用的记录不存在
	ErrNotFound = errors.New("记录不存在")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = ErrConflict

// ValidationError 字段级校验错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation 构造 ValidationError
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError 预期行数与实际行数不一致
type ConflictError struct {
	Entity   string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s 预期 %d 行，实际 %d 行", ErrConflict, e.Entity, e.Expected, e.Actual)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Conflict 构造 ConflictError
func Conflict(entity string, expected, actual int64) error {
	return &ConflictError{Entity: entity, Expected: expected, Actual: actual}
}

// ConfigurationError 拒绝执行的运维错误，Bucket 为触发拒绝的统计桶（可选）
type ConfigurationError struct {
	Reason string
	Bucket string
}

func (e *ConfigurationError) Error() string {
	if e.Bucket == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: %s (bucket %s)", ErrConfiguration, e.Reason, e.Bucket)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NotFoundError 引用记录不存在
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrNotFound, e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound 构造 NotFoundError
func NotFound(entity string, key interface{}) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}
