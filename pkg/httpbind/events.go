package httpbind

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// streamEvents GET /events
// 以 server-sent events 推送通知，事件名为通知类型，数据为事件 JSON
// 订阅方跟不上时丢弃事件，不影响验证运行
func (b *Binding) streamEvents(c *gin.Context) {
	ctx := c.Request.Context()
	events := b.events.Stream(ctx, b.eventBuffer)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(event.Kind.String(), event)
			c.Writer.Flush()
		}
	}
}
