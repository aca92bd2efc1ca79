package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKinds_MatchThroughWrapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", Validation("shifts", "不能为空"), ErrValidation},
		{"conflict", Conflict("worker_shifts", 2, 1), ErrConflict},
		{"configuration", &ConfigurationError{Reason: "未刷新", Bucket: "202410"}, ErrConfiguration},
		{"not found", NotFound("shift", "2024-01-08/DV"), ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("外层: %w", tc.err)
			if !errors.Is(wrapped, tc.kind) {
				t.Errorf("期望 errors.Is(%v, %v) 为 true", wrapped, tc.kind)
			}
			for _, other := range []error{ErrValidation, ErrConflict, ErrConfiguration, ErrNotFound} {
				if other != tc.kind && errors.Is(wrapped, other) {
					t.Errorf("%v 不应归类为 %v", tc.err, other)
				}
			}
		})
	}
}

func TestOptimisticLockIsConflict(t *testing.T) {
	if !errors.Is(Conflict("x", 1, 0), ErrOptimisticLock) {
		t.Error("ConflictError 应匹配 ErrOptimisticLock")
	}
}

func TestConflictError_Details(t *testing.T) {
	var ce *ConflictError
	err := fmt.Errorf("删除失败: %w", Conflict("worker_shifts", 3, 2))
	if !errors.As(err, &ce) {
		t.Fatal("期望可以 errors.As 为 *ConflictError")
	}
	if ce.Expected != 3 || ce.Actual != 2 {
		t.Errorf("期望 3/2，实际 %d/%d", ce.Expected, ce.Actual)
	}
}
