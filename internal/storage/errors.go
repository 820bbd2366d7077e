package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrObjectNotFound 表示对象存储中不存在该键。
	ErrObjectNotFound = errors.New("object not found")
	// ErrNotImage 表示上传内容经嗅探不是受支持的图片。
	ErrNotImage = errors.New("content is not a supported image")
	// ErrMalicious 表示病毒扫描命中。
	ErrMalicious = errors.New("malicious file detected")
)

// IsNoSuchKey 判断错误是否明确表示对象不存在（S3/MinIO: NoSuchKey/NotFound）。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch strings.ToLower(strings.TrimSpace(minioErr.Code)) {
		case "nosuchkey", "notfound":
			return true
		}
	}

	// 兜底：不同网关/代理可能会把错误包装成字符串。
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}
