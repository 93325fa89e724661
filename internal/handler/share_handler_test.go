package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"khodam-go/internal/cdn"
	"khodam-go/internal/dto"
	"khodam-go/internal/middleware"
	"khodam-go/internal/model"
	"khodam-go/internal/repository"
	"khodam-go/pkg/logging"
	"khodam-go/pkg/utils"
)

// initHandlerTestEnv 搭一套完整环境：sqlite 库、假 CDN、临时暂存目录与清单文件
func initHandlerTestEnv(t *testing.T) (*gin.Engine, *int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logging.InitNopLogger()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Bootstrap(db); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	repository.DB = db
	repository.RedisPool = nil

	var cdnHits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&cdnHits, 1)
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"url_response":"https://cdn.example/a1b2.jpg"}`)); err != nil {
			t.Errorf("write cdn response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	cdn.DefaultClient = cdn.New(srv.URL, 5*time.Second)

	listPath := filepath.Join(t.TempDir(), "list.txt")
	if err := os.WriteFile(listPath, []byte("Harimau Putih\nNaga Emas\n"), 0644); err != nil {
		t.Fatalf("write khodam list: %v", err)
	}

	publicDir := t.TempDir()
	for _, page := range []string{"share.html", "404.html"} {
		if err := os.WriteFile(filepath.Join(publicDir, page), []byte("<html></html>"), 0644); err != nil {
			t.Fatalf("write %s: %v", page, err)
		}
	}

	viper.Set("upload.tmp_dir", t.TempDir())
	viper.Set("khodam.list_path", listPath)
	viper.Set("server.public_dir", publicDir)

	r := gin.New()
	r.Use(middleware.GlobalErrorMiddleware())
	r.Use(middleware.ViewCounterMiddleware())
	r.POST("/submit", SubmitHandler)
	r.GET("/share/:id", GetSharePageHandler)
	r.GET("/share-data/:id", GetShareDataHandler)
	r.GET("/total-views", TotalViewsHandler)
	r.NoRoute(NotFoundHandler)

	return r, &cdnHits
}

func buildSubmitForm(t *testing.T, name, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("name", name); err != nil {
		t.Fatalf("write name field: %v", err)
	}
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatalf("create photo part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write photo content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func shareCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := repository.DB.Model(&model.Share{}).Count(&count).Error; err != nil {
		t.Fatalf("count shares: %v", err)
	}
	return count
}

func TestSubmitAndFetchShare(t *testing.T) {
	r, cdnHits := initHandlerTestEnv(t)

	body, contentType := buildSubmitForm(t, "Alice", "cat.jpg", bytes.Repeat([]byte("j"), 2048))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp dto.SubmitResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if resp.Name != "Alice" {
		t.Errorf("name = %q", resp.Name)
	}
	if resp.Khodam != "Harimau Putih" && resp.Khodam != "Naga Emas" {
		t.Errorf("khodam %q not from the list", resp.Khodam)
	}
	if resp.PhotoURL != "https://cdn.example/a1b2.jpg" {
		t.Errorf("photoUrl = %q", resp.PhotoURL)
	}
	if err := utils.ValidateShareID(resp.ShareID); err != nil {
		t.Errorf("shareId %q is not 6 hex chars: %v", resp.ShareID, err)
	}
	if got := atomic.LoadInt64(cdnHits); got != 1 {
		t.Errorf("cdn hits = %d, want 1", got)
	}

	// 通过短标识能取回同样的记录，重复读结果一致
	for i := 0; i < 2; i++ {
		dataW := httptest.NewRecorder()
		r.ServeHTTP(dataW, httptest.NewRequest(http.MethodGet, "/share-data/"+resp.ShareID, nil))
		if dataW.Code != http.StatusOK {
			t.Fatalf("share-data status = %d", dataW.Code)
		}
		var share model.Share
		if err := json.Unmarshal(dataW.Body.Bytes(), &share); err != nil {
			t.Fatalf("decode share data: %v", err)
		}
		if share.Name != resp.Name || share.Khodam != resp.Khodam || share.PhotoURL != resp.PhotoURL {
			t.Errorf("share data %+v does not match submit response %+v", share, resp)
		}
	}

	pageW := httptest.NewRecorder()
	r.ServeHTTP(pageW, httptest.NewRequest(http.MethodGet, "/share/"+resp.ShareID, nil))
	if pageW.Code != http.StatusOK {
		t.Errorf("share page status = %d, want 200", pageW.Code)
	}
}

func TestSubmitRejectsNonImage(t *testing.T) {
	r, cdnHits := initHandlerTestEnv(t)

	body, contentType := buildSubmitForm(t, "Alice", "notes.txt", []byte("plain text"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := atomic.LoadInt64(cdnHits); got != 0 {
		t.Errorf("cdn hits = %d, rejected upload must not reach the cdn", got)
	}
	if got := shareCount(t); got != 0 {
		t.Errorf("share count = %d, rejected upload must not create a record", got)
	}
}

func TestSubmitRejectsOversizedFile(t *testing.T) {
	r, cdnHits := initHandlerTestEnv(t)

	body, contentType := buildSubmitForm(t, "Alice", "big.jpg", bytes.Repeat([]byte("j"), utils.MaxUploadSize+1))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := atomic.LoadInt64(cdnHits); got != 0 {
		t.Errorf("cdn hits = %d, oversized upload must not reach the cdn", got)
	}
	if got := shareCount(t); got != 0 {
		t.Errorf("share count = %d, oversized upload must not create a record", got)
	}
}

func TestSubmitMissingName(t *testing.T) {
	r, _ := initHandlerTestEnv(t)

	body, contentType := buildSubmitForm(t, "", "cat.jpg", []byte("jpegdata"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSubmitBlankNameKeepsSpecificMessage(t *testing.T) {
	r, _ := initHandlerTestEnv(t)

	// 纯空白名字过得了 binding，但要被 Validate 用具体的消息键拒绝
	body, contentType := buildSubmitForm(t, "   ", "cat.jpg", []byte("jpegdata"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	// 测试路由没挂 i18n 中间件，响应里返回的就是消息键本身
	if !bytes.Contains(w.Body.Bytes(), []byte("error.name_required")) {
		t.Errorf("body = %s, want the error.name_required message key", w.Body.String())
	}
}

func TestSubmitCDNFailureCreatesNoRecord(t *testing.T) {
	r, _ := initHandlerTestEnv(t)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)
	cdn.DefaultClient = cdn.New(failing.URL, 5*time.Second)

	body, contentType := buildSubmitForm(t, "Alice", "cat.jpg", []byte("jpegdata"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := shareCount(t); got != 0 {
		t.Errorf("share count = %d, failed upload must not create a record", got)
	}
}

func TestShareLookupNotFound(t *testing.T) {
	r, _ := initHandlerTestEnv(t)

	pageW := httptest.NewRecorder()
	r.ServeHTTP(pageW, httptest.NewRequest(http.MethodGet, "/share/doesnotexist", nil))
	if pageW.Code != http.StatusNotFound {
		t.Errorf("share page status = %d, want 404", pageW.Code)
	}

	dataW := httptest.NewRecorder()
	r.ServeHTTP(dataW, httptest.NewRequest(http.MethodGet, "/share-data/doesnotexist", nil))
	if dataW.Code != http.StatusNotFound {
		t.Errorf("share-data status = %d, want 404", dataW.Code)
	}
}

func TestShareLookupRejectsMalformedID(t *testing.T) {
	r, _ := initHandlerTestEnv(t)

	// 非 6 位十六进制的标识在入口处直接 404
	for _, id := range []string{"zzzzzz", "A1B2C3", "a1b2c", "a1b2c3d"} {
		pageW := httptest.NewRecorder()
		r.ServeHTTP(pageW, httptest.NewRequest(http.MethodGet, "/share/"+id, nil))
		if pageW.Code != http.StatusNotFound {
			t.Errorf("share page status for %q = %d, want 404", id, pageW.Code)
		}

		dataW := httptest.NewRecorder()
		r.ServeHTTP(dataW, httptest.NewRequest(http.MethodGet, "/share-data/"+id, nil))
		if dataW.Code != http.StatusNotFound {
			t.Errorf("share-data status for %q = %d, want 404", id, dataW.Code)
		}
	}

	// 格式合法但不存在的标识同样 404
	dataW := httptest.NewRecorder()
	r.ServeHTTP(dataW, httptest.NewRequest(http.MethodGet, "/share-data/abc123", nil))
	if dataW.Code != http.StatusNotFound {
		t.Errorf("share-data status for absent id = %d, want 404", dataW.Code)
	}
}

func TestUnmatchedRouteReturnsNotFoundPage(t *testing.T) {
	r, _ := initHandlerTestEnv(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope/nothing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
