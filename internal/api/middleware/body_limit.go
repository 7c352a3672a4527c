package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"icodses/backend/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// 投稿表单含摘要文件，maxBytes 应略大于 upload.max_abstract_bytes
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.TooLarge(c)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		var tooLarge *http.MaxBytesError
		for _, err := range c.Errors {
			if errors.As(err.Err, &tooLarge) {
				response.TooLarge(c)
				return
			}
		}
	}
}
