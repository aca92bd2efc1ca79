package reconcile

import (
	pkgerrors "github.com/Mortal/shiftplanner/pkg/errors"
)

// Assigned 现有排班行：行 ID、值班人员 ID、班内序号
type Assigned struct {
	RowID    int64
	WorkerID int64
	Order    int
}

// Insertion 待插入的排班行
type Insertion struct {
	WorkerID int64
	Order    int
}

// AssignmentPlan 排班列表的最小变更：保留前 Keep 行，删除 Deletes，追加 Inserts
type AssignmentPlan struct {
	Keep    int
	Deletes []int64
	Inserts []Insertion
}

// Empty 是否无需任何写操作
func (p AssignmentPlan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Inserts) == 0
}

// Assignments 计算从 old（按 Order 升序）到 desired 的变更。
// 新行序号接在 old 的最大序号之后，保留行的序号不变。
// desired 中出现重复 ID 时直接返回 ValidationError。
func Assignments(old []Assigned, desired []int64) (AssignmentPlan, error) {
	if dup, ok := FirstDuplicate(desired); ok {
		return AssignmentPlan{}, pkgerrors.Validation("workers", "值班人员 %d 重复", dup)
	}

	k := CommonPrefix(old, desired, func(a Assigned) int64 { return a.WorkerID })
	plan := AssignmentPlan{Keep: k}

	for _, a := range old[k:] {
		plan.Deletes = append(plan.Deletes, a.RowID)
	}

	next := 1
	if len(old) > 0 {
		next = old[len(old)-1].Order + 1
	}
	for _, w := range desired[k:] {
		plan.Inserts = append(plan.Inserts, Insertion{WorkerID: w, Order: next})
		next++
	}
	return plan, nil
}
