package utils

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// MaxUploadSize 上传图片大小上限（10 MiB，含边界）
const MaxUploadSize = 10 << 20

var shareIDPattern = regexp.MustCompile(`^[0-9a-f]{6}$`)

// ValidateShareID 校验 shareId 是否为合法的 6 位十六进制标识
func ValidateShareID(shareID string) error {
	if shareID == "" {
		return fmt.Errorf("error.share_id_required")
	}

	if !shareIDPattern.MatchString(shareID) {
		return fmt.Errorf("error.share_id_invalid")
	}

	return nil
}

// ValidateDisplayName 校验提交者名字
func ValidateDisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("error.name_required")
	}

	if len(name) > 255 {
		return fmt.Errorf("error.name_max_length")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("error.name_invalid")
		}
	}

	return nil
}

// ValidateImageUpload 校验上传文件是否为图片且未超出大小上限。
// MIME 优先按文件扩展名推断，推断不出时退回表单声明的 Content-Type。
func ValidateImageUpload(filename, declaredType string, size int64) error {
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = declaredType
	}

	if !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("error.invalid_file_type")
	}

	if size > MaxUploadSize {
		return fmt.Errorf("error.file_too_large")
	}

	return nil
}
