package idgen

import (
	"fmt"
	"strconv"
	"time"
)

// Info ID 解析结果
type Info struct {
	ID           int64
	Time         time.Time
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// Parse 解析 ID
func Parse(id int64) (Info, error) {
	if id <= 0 {
		return Info{}, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	return Info{
		ID:           id,
		Time:         time.UnixMilli(id>>TimestampShift + Epoch),
		DatacenterID: id >> DatacenterIDShift & MaxDatacenterID,
		WorkerID:     id >> WorkerIDShift & MaxWorkerID,
		Sequence:     id & MaxSequence,
	}, nil
}

// ParseString 解析 NewID 产生的文本
func ParseString(s string) (Info, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return Parse(id)
}
