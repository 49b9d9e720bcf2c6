package idgen

import (
	"errors"
	"fmt"
	"time"
)

const (
	// Epoch 起始时间戳 (2024-01-01 00:00:00 UTC)，毫秒
	Epoch int64 = 1704067200000

	// 位数分配
	WorkerIDBits     = 5
	DatacenterIDBits = 5
	SequenceBits     = 12

	// 最大值
	MaxWorkerID     = -1 ^ (-1 << WorkerIDBits)     // 31
	MaxDatacenterID = -1 ^ (-1 << DatacenterIDBits) // 31
	MaxSequence     = -1 ^ (-1 << SequenceBits)     // 4095

	// 位移量
	WorkerIDShift     = SequenceBits
	DatacenterIDShift = SequenceBits + WorkerIDBits
	TimestampShift    = SequenceBits + WorkerIDBits + DatacenterIDBits
)

var (
	// ErrInvalidWorkerID 工作机器ID超出范围
	ErrInvalidWorkerID = errors.New("idgen: worker id out of range")

	// ErrInvalidDatacenterID 数据中心ID超出范围
	ErrInvalidDatacenterID = errors.New("idgen: datacenter id out of range")

	// ErrInvalidID ID 不是本生成器产生的格式
	ErrInvalidID = errors.New("idgen: invalid id")
)

// Config 生成器配置
type Config struct {
	DatacenterID int64 `mapstructure:"datacenter_id"`
	WorkerID     int64 `mapstructure:"worker_id"`

	// Now 时钟，测试时替换
	Now func() time.Time `mapstructure:"-"`
}

// Validate 校验节点编号
func (c Config) Validate() error {
	var errs []error
	if c.DatacenterID < 0 || c.DatacenterID > MaxDatacenterID {
		errs = append(errs, fmt.Errorf("%w: %d (0-%d)", ErrInvalidDatacenterID, c.DatacenterID, MaxDatacenterID))
	}
	if c.WorkerID < 0 || c.WorkerID > MaxWorkerID {
		errs = append(errs, fmt.Errorf("%w: %d (0-%d)", ErrInvalidWorkerID, c.WorkerID, MaxWorkerID))
	}
	return errors.Join(errs...)
}
