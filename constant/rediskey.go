package constant

import "fmt"

// 常量定义
const (
	BasePrefix = "khodam:"
	Separator  = ":"
)

// Redis 键模板
const (
	Share = BasePrefix + "share" + Separator + "%s" // khodam:share:<share_id>
)

// 缓存过期时间（秒）
const (
	ShareCacheTTL = 3600 // 正常缓存 1 小时
	EmptyCacheTTL = 300  // 空值缓存，防止缓存穿透
)

// GetShareKey 生成 share 缓存 key
func GetShareKey(shareID string) string {
	return fmt.Sprintf(Share, shareID)
}
