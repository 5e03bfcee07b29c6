package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinPublicURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  string
		want string
	}{
		{"host only", "https://cdn.example.com", "brackets/1/a.json", "https://cdn.example.com/brackets/1/a.json"},
		{"base with path", "https://cdn.example.com/archive", "brackets/1/a.json", "https://cdn.example.com/archive/brackets/1/a.json"},
		{"leading slash key", "https://cdn.example.com/archive/", "/brackets/1/a.json", "https://cdn.example.com/archive/brackets/1/a.json"},
		{"no base", "", "brackets/1/a.json", ""},
		{"no key", "https://cdn.example.com", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinPublicURL(tt.base, tt.key, nil))
		})
	}
}

func TestNewCloudflareR2UploaderRequiresCredentials(t *testing.T) {
	_, err := NewCloudflareR2Uploader(t.Context(), CloudflareR2UploaderConfig{BucketName: "b"}, nil)
	assert.Error(t, err)

	_, err = NewCloudflareR2Uploader(t.Context(), CloudflareR2UploaderConfig{
		AccessKeyID: "k", SecretAccessKey: "s", BucketName: "b",
	}, nil)
	assert.Error(t, err)
}
