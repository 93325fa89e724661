package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"khodam-go/internal/apperrors"
	"khodam-go/internal/repository"
	"khodam-go/pkg/logging"
)

const (
	ViewedCookieName   = "viewed"
	ViewedCookieMaxAge = 24 * 60 * 60 // 24 小时
	TotalViewsKey      = "totalViews"
)

// ViewCounterMiddleware 按浏览器去重的全局访问计数。
// 没有 viewed cookie 的首次请求原子递增计数并种下 cookie，
// 24 小时内的后续请求只读不加。计数读写失败时请求直接失败，不静默放行。
func ViewCounterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		counter, err := repository.GetViewCounter()
		if err != nil {
			logging.Logger.Error("Failed to read view counter", zap.Error(err))
			_ = c.Error(apperrors.SystemErrorDefault())
			c.Abort()
			return
		}

		if _, cookieErr := c.Cookie(ViewedCookieName); cookieErr == http.ErrNoCookie {
			if err := repository.IncrementViewCounter(counter.ID); err != nil {
				logging.Logger.Error("Failed to increment view counter", zap.Error(err))
				_ = c.Error(apperrors.SystemErrorDefault())
				c.Abort()
				return
			}

			c.SetCookie(ViewedCookieName, "true", ViewedCookieMaxAge, "/", "", false, true)

			// 递增后重新读取，保证展示值与存储值一致
			counter, err = repository.GetViewCounter()
			if err != nil {
				logging.Logger.Error("Failed to re-read view counter", zap.Error(err))
				_ = c.Error(apperrors.SystemErrorDefault())
				c.Abort()
				return
			}
		}

		c.Set(TotalViewsKey, counter.TotalViews)
		c.Next()
	}
}
