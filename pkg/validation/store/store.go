package store

import (
	"hash/fnv"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"katydid-async-validation/pkg/validation/core"
)

// defaultShardCount 默认分片数
const defaultShardCount = 32

// shard 存储分片
type shard struct {
	mu   sync.RWMutex
	data map[core.FieldKey][]core.Failure
}

// ErrorStore 错误存储
// 职责：字段 -> 当前失败项列表，"当前有哪些错误"的唯一数据源
// 线程安全：键按哈希分布到独立加锁的分片，不同分片的键互不阻塞，同一键的操作串行
// 不变式：不会存在映射到空列表的键
type ErrorStore struct {
	shards []*shard
	size   atomic.Int64 // 非空键数量
}

// Option 存储选项
type Option func(*ErrorStore)

// WithShardCount 设置分片数
func WithShardCount(n int) Option {
	return func(s *ErrorStore) {
		if n > 0 {
			s.shards = make([]*shard, n)
		}
	}
}

// New 创建错误存储
func New(opts ...Option) *ErrorStore {
	s := &ErrorStore{
		shards: make([]*shard, defaultShardCount),
	}

	for _, opt := range opts {
		opt(s)
	}

	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[core.FieldKey][]core.Failure)}
	}

	return s
}

// shardFor 定位键所在分片
func (s *ErrorStore) shardFor(key core.FieldKey) *shard {
	if len(s.shards) == 1 {
		return s.shards[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get 获取字段的失败项
// 返回副本，调用方可以自由修改
func (s *ErrorStore) Get(key core.FieldKey) ([]core.Failure, bool) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	failures, ok := sh.data[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(failures), true
}

// Clear 移除字段的所有失败项
func (s *ErrorStore) Clear(key core.FieldKey) {
	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.data[key]; ok {
		delete(sh.data, key)
		s.size.Add(-1)
	}
}

// ClearAll 清空存储
// 按固定顺序锁住全部分片，对单键操作而言是原子的
func (s *ErrorStore) ClearAll() {
	for _, sh := range s.shards {
		sh.mu.Lock()
	}

	for _, sh := range s.shards {
		s.size.Add(-int64(len(sh.data)))
		clear(sh.data)
	}

	for i := len(s.shards) - 1; i >= 0; i-- {
		s.shards[i].mu.Unlock()
	}
}

// Append 追加失败项，键不存在时创建
// failures 为空时不做任何事
func (s *ErrorStore) Append(key core.FieldKey, failures ...core.Failure) {
	if len(failures) == 0 {
		return
	}

	sh := s.shardFor(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	existing, ok := sh.data[key]
	if !ok {
		s.size.Add(1)
	}
	sh.data[key] = append(existing, failures...)
}

// HasAnyErrors 是否存在任何错误
func (s *ErrorStore) HasAnyErrors() bool {
	return s.size.Load() > 0
}

// IsFieldValid 字段是否没有错误
func (s *ErrorStore) IsFieldValid(key core.FieldKey) bool {
	failures, ok := s.Get(key)
	return !ok || len(failures) == 0
}

// Len 非空键数量
func (s *ErrorStore) Len() int {
	return int(s.size.Load())
}

// Keys 所有存在错误的键（已排序）
func (s *ErrorStore) Keys() []core.FieldKey {
	keys := make([]core.FieldKey, 0, s.Len())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key := range sh.data {
			keys = append(keys, key)
		}
		sh.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}

// Snapshot 获取整个存储的快照
// 快照期间持有全部分片的读锁，结果是一致的时间点视图
func (s *ErrorStore) Snapshot() map[core.FieldKey][]core.Failure {
	for _, sh := range s.shards {
		sh.mu.RLock()
	}
	defer func() {
		for i := len(s.shards) - 1; i >= 0; i-- {
			s.shards[i].mu.RUnlock()
		}
	}()

	result := make(map[core.FieldKey][]core.Failure, s.size.Load())
	for _, sh := range s.shards {
		for key, failures := range sh.data {
			result[key] = slices.Clone(failures)
		}
	}
	return result
}
