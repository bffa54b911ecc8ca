package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/diario/internal/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes 上传图片大小上限。
const MaxImageBytes = 10 << 20

// ImageStore 外部图片存储能力，上传返回可公开访问的 URL。
type ImageStore interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
	Delete(ctx context.Context, url string) bool
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ValidateImage 解析图片头部，返回格式名（png、jpeg、gif、webp）。
func ValidateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", invalidInput("image is empty")
	}
	if len(data) > MaxImageBytes {
		return "", invalidInput("image is too large")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", invalidInput("unsupported image format")
	}
	return format, nil
}

// ImgurStore 通过 Imgur API 托管图片。
type ImgurStore struct {
	clientID   string
	baseURL    string
	httpClient httpDoer
	mu         sync.Mutex
	// deleteHashes 记录本进程上传图片的 deletehash，匿名上传只能凭它删除
	deleteHashes map[string]string
}

// NewImgurStore 构造 ImgurStore。
func NewImgurStore(clientID string) *ImgurStore {
	return &ImgurStore{
		clientID:     strings.TrimSpace(clientID),
		baseURL:      "https://api.imgur.com/3",
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		deleteHashes: make(map[string]string),
	}
}

// SetHTTPClient 替换 HTTP 客户端，主要面向测试场景。
func (s *ImgurStore) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
		return
	}
	s.httpClient = client
}

// SetBaseURL 覆盖 API 基础地址。
func (s *ImgurStore) SetBaseURL(base string) {
	s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
}

type imgurResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		Link       string `json:"link"`
		DeleteHash string `json:"deletehash"`
	} `json:"data"`
}

// Upload 上传图片并返回 Imgur 链接。
func (s *ImgurStore) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if s.clientID == "" {
		return "", errors.New("imgur client id not configured")
	}
	if _, err := ValidateImage(data); err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return "", errors.Wrap(err, "build upload form")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "build upload form")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/image", &body)
	if err != nil {
		return "", errors.Wrap(err, "create upload request")
	}
	req.Header.Set("Authorization", "Client-ID "+s.clientID)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "upload image")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read upload response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("imgur upload failed: status %d", resp.StatusCode)
	}

	var parsed imgurResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", errors.Wrap(err, "decode upload response")
	}
	if !parsed.Success || parsed.Data.Link == "" {
		return "", errors.New("imgur upload returned no link")
	}

	if parsed.Data.DeleteHash != "" {
		s.mu.Lock()
		s.deleteHashes[parsed.Data.Link] = parsed.Data.DeleteHash
		s.mu.Unlock()
	}
	return parsed.Data.Link, nil
}

// Delete 删除本进程上传过的图片，未知链接返回 false。
func (s *ImgurStore) Delete(ctx context.Context, url string) bool {
	s.mu.Lock()
	hash, ok := s.deleteHashes[url]
	s.mu.Unlock()
	if !ok {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/image/%s", s.baseURL, hash), nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Client-ID "+s.clientID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.L().Warn("imgur delete failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	s.mu.Lock()
	delete(s.deleteHashes, url)
	s.mu.Unlock()
	return true
}

// LocalImageStore 将图片保存到本地目录，未配置 Imgur 时使用。
type LocalImageStore struct {
	dir        string
	publicPath string
}

// NewLocalImageStore 构造 LocalImageStore，publicPath 为对外访问前缀。
func NewLocalImageStore(dir, publicPath string) *LocalImageStore {
	return &LocalImageStore{dir: dir, publicPath: strings.TrimRight(publicPath, "/")}
}

// Upload 以 "日期-uuid.扩展名" 命名保存图片。
func (s *LocalImageStore) Upload(_ context.Context, data []byte, filename string) (string, error) {
	format, err := ValidateImage(data)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create upload dir")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = "." + format
	}
	name := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", errors.Wrap(err, "save image")
	}
	return s.publicPath + "/" + name, nil
}

// Delete 删除 publicPath 下的本地图片。
func (s *LocalImageStore) Delete(_ context.Context, url string) bool {
	prefix := s.publicPath + "/"
	if !strings.HasPrefix(url, prefix) {
		return false
	}
	name := filepath.Base(strings.TrimPrefix(url, prefix))
	if name == "." || name == "/" {
		return false
	}
	return os.Remove(filepath.Join(s.dir, name)) == nil
}
