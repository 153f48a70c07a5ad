// internal/storage/archive/s3_test.go
package archive

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	if _, err := NewS3(S3Config{}); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
	if _, err := NewS3(S3Config{Bucket: "b", Endpoint: "http://localhost:9000"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestS3Storage_KeyAndRel(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"archive", "file.txt", "archive/file.txt"},
		{"archive/", "file.txt", "archive/file.txt"},
		{"/archive/", "/reports/a.json", "archive/reports/a.json"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.Trim(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
		if rel := s.rel(got); rel != strings.TrimPrefix(tt.path, "/") {
			t.Errorf("rel(%q) = %q", got, rel)
		}
	}
}

func TestWrapS3_NotFound(t *testing.T) {
	err := wrapS3(fmt.Errorf("get: %w", &types.NoSuchKey{}), "a.json")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	err = wrapS3(errors.New("throttled"), "a.json")
	if !errors.Is(err, core.ErrArchiveFailed) {
		t.Errorf("expected ErrArchiveFailed, got %v", err)
	}
}
