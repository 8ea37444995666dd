package crawlers

import (
	"sync"

	"github.com/RecoveryAshes/sitecheck/internal/models"
)

// URLQueue 广度优先前沿队列 + 已访问集合
// 职责: 维护FIFO顺序的待访问页面键,以及按访问顺序记录的已访问集合
//
// 引擎协调者是唯一的写入方;锁用于让进度观察者和报告安全地读取计数
type URLQueue struct {
	mu sync.RWMutex

	// 待处理队列,head之前的元素已出队
	pending []models.URLItem
	head    int

	// 已访问集合及其插入顺序
	visited      map[string]struct{}
	visitedOrder []string
}

// NewURLQueue 创建空队列
func NewURLQueue() *URLQueue {
	return &URLQueue{
		visited: make(map[string]struct{}),
	}
}

// Push 追加到队尾;不做去重,同一键可以多次入队,出队时再跳过
func (q *URLQueue) Push(item models.URLItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, item)
}

// Pop 取出队首,队列为空时返回false
func (q *URLQueue) Pop() (models.URLItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.pending) {
		return models.URLItem{}, false
	}
	item := q.pending[q.head]
	q.pending[q.head] = models.URLItem{}
	q.head++

	// 已出队部分超过一半时压缩底层数组
	if q.head > 1024 && q.head*2 > len(q.pending) {
		q.pending = append([]models.URLItem(nil), q.pending[q.head:]...)
		q.head = 0
	}
	return item, true
}

// MarkVisited 标记为已访问,键此前未访问时返回true
func (q *URLQueue) MarkVisited(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.visited[key]; ok {
		return false
	}
	q.visited[key] = struct{}{}
	q.visitedOrder = append(q.visitedOrder, key)
	return true
}

// IsVisited 检查键是否已访问
func (q *URLQueue) IsVisited(key string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.visited[key]
	return ok
}

// VisitedCount 已访问页面数
func (q *URLQueue) VisitedCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.visitedOrder)
}

// Visited 按访问顺序返回已访问键的副本
func (q *URLQueue) Visited() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]string(nil), q.visitedOrder...)
}

// PendingCount 队列中剩余的条目数(含重复)
func (q *URLQueue) PendingCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.pending) - q.head
}

// Reset 清空全部状态,供批量模式复用
func (q *URLQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	q.head = 0
	q.visited = make(map[string]struct{})
	q.visitedOrder = nil
}
