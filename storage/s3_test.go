package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestNewS3Storage_Validation(t *testing.T) {
	_, err := NewS3Storage("", "us-east-1")
	assert.Error(t, err)

	_, err = NewS3Storage("bucket", "")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	key, err := objectKey("jobs/1/report.md")
	assert.NoError(t, err)
	assert.Equal(t, "jobs/1/report.md", key)

	_, err = objectKey("../x")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("screen.png"))
	assert.Equal(t, "text/markdown; charset=utf-8", contentType("report.md"))
	assert.Equal(t, "text/x-python; charset=utf-8", contentType("fixed.py"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}

func TestIsS3NotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantTrue bool
	}{
		{name: "nil error", err: nil, wantTrue: false},
		{name: "generic error", err: context.Canceled, wantTrue: false},
		{name: "no such key", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, wantTrue: true},
		{name: "not found", err: &smithy.GenericAPIError{Code: "NotFound"}, wantTrue: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, wantTrue: false},
		{name: "wrapped", err: errors.Join(errors.New("op"), &smithy.GenericAPIError{Code: "NoSuchKey"}), wantTrue: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTrue, isS3NotFoundError(tt.err))
		})
	}
}
