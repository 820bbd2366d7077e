package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// AssetRoutePrefix 是对象存储图片在 API 中的公开访问前缀。
const AssetRoutePrefix = "/api/public/assets/"

const assetKeyPrefix = "profile-assets/"

// Image 是通过内容嗅探确认过的图片。
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// DetectImage 依据文件内容（而非客户端声明的类型）识别图片。SVG 可携带脚本，不予接受。
func DetectImage(data []byte) (Image, error) {
	mtype := mimetype.Detect(data)
	contentType := mtype.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !strings.HasPrefix(contentType, "image/") || contentType == "image/svg+xml" {
		return Image{}, ErrNotImage
	}
	return Image{Data: data, ContentType: contentType, Extension: mtype.Extension()}, nil
}

// ImageStore 保存页面头像与背景图，返回写入 profiles 表的 URL。
type ImageStore interface {
	Save(ctx context.Context, profileID uuid.UUID, img Image) (string, error)
	// Remove 删除此前 Save 返回的 URL 对应的内容；无法识别的 URL 直接忽略。
	Remove(ctx context.Context, storedURL string) error
	// RemoveProfile 删除页面的全部图片。
	RemoveProfile(ctx context.Context, profileID uuid.UUID) error
}

// InlineStore 把图片编码为 base64 data URL 直接存入数据库。
type InlineStore struct{}

func (InlineStore) Save(_ context.Context, _ uuid.UUID, img Image) (string, error) {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

func (InlineStore) Remove(context.Context, string) error { return nil }

func (InlineStore) RemoveProfile(context.Context, uuid.UUID) error { return nil }

type objectClient interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, key string) error
	RemovePrefix(ctx context.Context, prefix string) error
}

// ObjectStore 把图片写入 MinIO，数据库中只保存 API 资产路由。
type ObjectStore struct {
	client objectClient
}

func NewObjectStore(client objectClient) *ObjectStore {
	return &ObjectStore{client: client}
}

func (s *ObjectStore) Save(ctx context.Context, profileID uuid.UUID, img Image) (string, error) {
	key := fmt.Sprintf("%s%s/%s%s", assetKeyPrefix, profileID, uuid.NewString(), img.Extension)
	if err := s.client.PutObject(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType); err != nil {
		return "", err
	}
	return AssetRoutePrefix + key, nil
}

func (s *ObjectStore) Remove(ctx context.Context, storedURL string) error {
	key, ok := strings.CutPrefix(storedURL, AssetRoutePrefix)
	if !ok || !ValidAssetKey(key) {
		return nil
	}
	return s.client.RemoveObject(ctx, key)
}

func (s *ObjectStore) RemoveProfile(ctx context.Context, profileID uuid.UUID) error {
	return s.client.RemovePrefix(ctx, assetKeyPrefix+profileID.String()+"/")
}
