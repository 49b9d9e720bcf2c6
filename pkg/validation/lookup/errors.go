package lookup

import "errors"

var (
	ErrParseURL          = errors.New("lookup: failed to parse redis connection url")
	ErrNotReady          = errors.New("lookup: redis did not become ready in time")
	ErrHealthcheckFailed = errors.New("lookup: redis healthcheck failed")
)
