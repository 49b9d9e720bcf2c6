package idgen

import (
	"strconv"
	"sync"
	"time"

	"katydid-async-validation/pkg/validation/core"
)

// Generator Snowflake 运行标识生成器
// ID 结构：时间戳(41位) | 数据中心ID(5位) | 工作机器ID(5位) | 序列号(12位)
// 时钟回拨或单毫秒序列号耗尽时沿用逻辑时间继续递增，不阻塞也不返回错误
type Generator struct {
	mu            sync.Mutex
	lastTimestamp int64
	sequence      int64

	node int64 // 预计算的数据中心和工作机器部分
	now  func() time.Time
}

var _ core.IDGenerator = (*Generator)(nil)

// New 创建生成器
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Generator{
		lastTimestamp: -1,
		node:          cfg.DatacenterID<<DatacenterIDShift | cfg.WorkerID<<WorkerIDShift,
		now:           now,
	}, nil
}

// Next 生成下一个 ID，同一生成器产生的 ID 严格递增
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	timestamp := g.now().UnixMilli()
	if timestamp < g.lastTimestamp {
		timestamp = g.lastTimestamp
	}

	if timestamp == g.lastTimestamp {
		g.sequence++
		if g.sequence > MaxSequence {
			timestamp++
			g.sequence = 0
		}
	} else {
		g.sequence = 0
	}
	g.lastTimestamp = timestamp

	return (timestamp-Epoch)<<TimestampShift | g.node | g.sequence
}

// NewID 实现 core.IDGenerator，十进制文本
func (g *Generator) NewID() string {
	return strconv.FormatInt(g.Next(), 10)
}
