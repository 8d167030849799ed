package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

// Store 截图等二进制对象的上传
type Store interface {
	Upload(ctx context.Context, data []byte, key string) (string, error)
}

// httpStore 对预签名风格的对象存储端点做PUT上传
type httpStore struct {
	endpoint string
	token    string
	client   *http.Client
	log      *zap.Logger
}

func InitHTTPStore(cfg *config.Config, log *zap.Logger) Store {
	return &httpStore{
		endpoint: strings.TrimRight(cfg.Blob.Endpoint, "/"),
		token:    cfg.Blob.AuthToken,
		client:   &http.Client{Timeout: 60 * time.Second},
		log:      log.Named("blob"),
	}
}

func (hs *httpStore) Upload(ctx context.Context, data []byte, key string) (string, error) {
	url := fmt.Sprintf("%s/%s", hs.endpoint, strings.TrimLeft(key, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", faults.Mark(faults.Transient, err, "构造上传请求失败")
	}
	req.Header.Set("Content-Type", "image/png")
	if hs.token != "" {
		req.Header.Set("Authorization", "Bearer "+hs.token)
	}

	resp, err := hs.client.Do(req)
	if err != nil {
		return "", faults.Markf(faults.Transient, err, "上传失败: %s", key)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", faults.Newf(faults.RateLimited, "上传被限流: %s", key)
	case resp.StatusCode >= 300:
		return "", faults.Newf(faults.Transient, "上传返回异常状态 %d: %s", resp.StatusCode, key)
	}
	hs.log.Debug("上传完成", zap.String("key", key), zap.Int("bytes", len(data)))
	return url, nil
}
