package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"budget-backend/internal/shared/storage/object"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestApplyEncryption(t *testing.T) {
	input := &s3.PutObjectInput{}
	(&Store{}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || input.SSEKMSKeyId != nil {
		t.Fatalf("expected AES256 without a KMS key, got %+v", input)
	}

	input = &s3.PutObjectInput{}
	(&Store{kmsKeyID: "alias/statements"}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(input.SSEKMSKeyId) != "alias/statements" {
		t.Fatalf("expected KMS encryption, got %+v", input)
	}
}

func TestCountingReader(t *testing.T) {
	cr := &countingReader{r: strings.NewReader("statement body")}
	if _, err := io.Copy(io.Discard, cr); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if cr.n != int64(len("statement body")) {
		t.Fatalf("expected %d bytes counted, got %d", len("statement body"), cr.n)
	}
}

func TestDeleteRejectsEmptyKey(t *testing.T) {
	if err := (&Store{}).Delete(context.Background(), " "); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
