package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// Scanner 在落盘前检查上传内容。
type Scanner interface {
	Scan(data []byte) error
}

// NopScanner 在未配置 clamd 时使用。
type NopScanner struct{}

func (NopScanner) Scan([]byte) error { return nil }

// ClamdScanner 通过 clamd 的 INSTREAM 接口扫描内容。
type ClamdScanner struct {
	addr string
}

func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr}
}

// Scan 命中病毒时返回 ErrMalicious；clamd 不可用时返回普通错误。
func (s *ClamdScanner) Scan(data []byte) error {
	client := clamd.NewClamd(s.addr)

	abort := make(chan bool)
	defer close(abort)

	results, err := client.ScanStream(io.Reader(bytes.NewReader(data)), abort)
	if err != nil {
		return fmt.Errorf("scan upload: %w", err)
	}
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			return ErrMalicious
		default:
			return fmt.Errorf("scan upload: clamd status %s: %s", result.Status, result.Description)
		}
	}
	return nil
}
