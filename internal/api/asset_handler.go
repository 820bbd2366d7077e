package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"linkpage/internal/api/middleware"
	"linkpage/internal/errcode"
	"linkpage/internal/storage"
)

const (
	assetURLTTL = 10 * time.Minute
	// multipart 头部与边界的额外余量
	multipartOverhead = 64 << 10
)

// AssetSigner 是公开资产路由所需的对象存储能力，由 storage.Client 实现。
type AssetSigner interface {
	StatObject(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// uploadReader 读取并校验上传的图片：大小、真实内容类型与病毒扫描。
type uploadReader struct {
	maxBytes int64
	scanner  storage.Scanner
}

func newUploadReader(maxBytes int64, scanner storage.Scanner) uploadReader {
	if scanner == nil {
		scanner = storage.NopScanner{}
	}
	return uploadReader{maxBytes: maxBytes, scanner: scanner}
}

// read 返回表单字段中的图片；失败时已登记错误。
func (u uploadReader) read(c *gin.Context, field string) (storage.Image, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, u.maxBytes+multipartOverhead)

	file, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Fail(c, errcode.ErrPayloadTooLarge)
			return storage.Image{}, false
		}
		Fail(c, errcode.Validation(field+" file is required"))
		return storage.Image{}, false
	}
	if file.Size > u.maxBytes {
		Fail(c, errcode.ErrPayloadTooLarge)
		return storage.Image{}, false
	}

	f, err := file.Open()
	if err != nil {
		Fail(c, err)
		return storage.Image{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, u.maxBytes+1))
	if err != nil {
		Fail(c, err)
		return storage.Image{}, false
	}
	if int64(len(data)) > u.maxBytes {
		Fail(c, errcode.ErrPayloadTooLarge)
		return storage.Image{}, false
	}

	img, err := storage.DetectImage(data)
	if err != nil {
		Fail(c, errcode.ErrUnsupportedMedia)
		return storage.Image{}, false
	}

	if err := u.scanner.Scan(data); err != nil {
		if errors.Is(err, storage.ErrMalicious) {
			middleware.LoggerFromContext(c).Warn("malicious upload rejected", slog.String("field", field))
			Fail(c, errcode.Validation("malicious file detected"))
			return storage.Image{}, false
		}
		Fail(c, err)
		return storage.Image{}, false
	}

	return img, true
}

// AssetHandler 把对象存储中的页面图片重定向到短期有效的预签名地址。
type AssetHandler struct {
	signer AssetSigner
}

// NewAssetHandler 返回 AssetHandler；signer 为 nil 时所有资产均不存在。
func NewAssetHandler(signer AssetSigner) *AssetHandler {
	return &AssetHandler{signer: signer}
}

// Redirect 处理 GET /api/public/assets/*key。
func (h *AssetHandler) Redirect(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if h.signer == nil || !storage.ValidAssetKey(key) {
		Fail(c, errcode.ErrNotFound)
		return
	}

	ctx := c.Request.Context()
	if err := h.signer.StatObject(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			Fail(c, errcode.ErrNotFound)
			return
		}
		Fail(c, err)
		return
	}

	url, err := h.signer.PresignedURL(ctx, key, assetURLTTL)
	if err != nil {
		Fail(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Redirect(http.StatusFound, url)
}
