package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"khodam-go/pkg/logging"
)

// 上传接口约定的表单字段名
const fileFieldName = "fileInput"

const defaultTimeout = 30 * time.Second

// DefaultClient 全局客户端实例，main 启动时通过 Init 初始化
var DefaultClient *Client

// Client 图片 CDN 上传客户端
type Client struct {
	uploadURL  string
	httpClient *http.Client
}

// uploadResponse CDN 成功响应体
type uploadResponse struct {
	URLResponse string `json:"url_response"`
}

func New(uploadURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		uploadURL:  uploadURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Init 从配置初始化全局客户端
func Init() {
	uploadURL := viper.GetString("cdn.upload_url")
	timeout := time.Duration(viper.GetInt("cdn.timeout_seconds")) * time.Second
	DefaultClient = New(uploadURL, timeout)
}

// Upload 把本地暂存文件以 multipart 表单中继到 CDN，返回公开访问 URL。
// 非 2xx、网络错误、响应缺少 url_response 均视为上传失败，不做重试。
func (c *Client) Upload(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logging.Logger.Warn("Failed to close staged file",
				zap.String("path", localPath),
				zap.Error(closeErr))
		}
	}()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fileFieldName, filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read staged file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to cdn: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.Logger.Warn("Failed to close cdn response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logging.Logger.Warn("CDN upload rejected",
			zap.String("upload_url", c.uploadURL),
			zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("cdn returned status %d", resp.StatusCode)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode cdn response: %w", err)
	}
	if result.URLResponse == "" {
		return "", fmt.Errorf("cdn response missing url_response")
	}

	return result.URLResponse, nil
}

// Upload 使用全局客户端上传
func Upload(ctx context.Context, localPath string) (string, error) {
	return DefaultClient.Upload(ctx, localPath)
}
