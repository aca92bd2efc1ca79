// Package reconcile 根据"观测状态 / 期望状态"计算最小变更集。
//
// 两种形态：
//   - 有序列表：保留最长公共前缀，其余部分整体删除后按期望顺序追加（CommonPrefix）
//   - 计数器：对每个期望键计算与已观测值之间的增量（Deltas）
//
// 两者都只读，不产生副作用；执行变更由调用方负责。
package reconcile

// CommonPrefix 返回 old 与 desired 的最长公共前缀长度，key 取 old 元素的比较键
func CommonPrefix[T any, K comparable](old []T, desired []K, key func(T) K) int {
	k := 0
	for k < len(old) && k < len(desired) && key(old[k]) == desired[k] {
		k++
	}
	return k
}

// FirstDuplicate 返回第一个重复元素；无重复时 ok 为 false
func FirstDuplicate[K comparable](items []K) (dup K, ok bool) {
	seen := make(map[K]struct{}, len(items))
	for _, it := range items {
		if _, exists := seen[it]; exists {
			return it, true
		}
		seen[it] = struct{}{}
	}
	return dup, false
}

// Delta 单个键的增量
type Delta[K comparable] struct {
	Key   K
	Delta int64
}

// DeltaSummary 增量统计：增加 / 不变 / 减少的键个数，以及非零增量列表
type DeltaSummary[K comparable] struct {
	Increased int
	Unchanged int
	Decreased int
	Changes   []Delta[K]
}

// Deltas 对 keys 中的每个键计算 desired[k] - observed[k]（缺失视为 0）。
// keys 决定遍历顺序，返回的 Changes 与之保持一致。
func Deltas[K comparable](keys []K, observed, desired map[K]int64) DeltaSummary[K] {
	var s DeltaSummary[K]
	for _, k := range keys {
		d := desired[k] - observed[k]
		switch {
		case d > 0:
			s.Increased++
		case d < 0:
			s.Decreased++
		default:
			s.Unchanged++
			continue
		}
		s.Changes = append(s.Changes, Delta[K]{Key: k, Delta: d})
	}
	return s
}
