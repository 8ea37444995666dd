package crawlers

import (
	"slices"
	"sync"

	"github.com/RecoveryAshes/sitecheck/internal/models"
)

// BrokenLedger 失效账本: 描述符 -> 来源集合
// 描述符按首次记录的顺序输出,来源按字典序输出
type BrokenLedger struct {
	mu      sync.Mutex
	order   []models.BrokenDescriptor
	sources map[models.BrokenDescriptor]map[string]struct{}
}

// NewBrokenLedger 创建空账本
func NewBrokenLedger() *BrokenLedger {
	return &BrokenLedger{
		sources: make(map[models.BrokenDescriptor]map[string]struct{}),
	}
}

// Record 把source并入描述符的来源集合;描述符首次出现时返回true
func (l *BrokenLedger) Record(desc models.BrokenDescriptor, source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, ok := l.sources[desc]
	if !ok {
		set = make(map[string]struct{})
		l.sources[desc] = set
		l.order = append(l.order, desc)
	}
	set[source] = struct{}{}
	return !ok
}

// Len 不同描述符的数量
func (l *BrokenLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Entries 按插入顺序导出,来源已排序
func (l *BrokenLedger) Entries() []models.BrokenEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]models.BrokenEntry, 0, len(l.order))
	for _, desc := range l.order {
		srcs := make([]string, 0, len(l.sources[desc]))
		for s := range l.sources[desc] {
			srcs = append(srcs, s)
		}
		slices.Sort(srcs)
		entries = append(entries, models.BrokenEntry{
			Target:  desc.Target,
			Status:  desc.Status,
			Cause:   desc.Cause(),
			Sources: srcs,
		})
	}
	return entries
}
