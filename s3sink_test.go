package streamxlsx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client records multipart calls and lets tests inject failures.
type mockS3Client struct {
	created   bool
	parts     [][]byte
	completed bool
	aborted   bool

	uploadPartErr error
	completeErr   error
}

func (m *mockS3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	m.created = true
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("test-upload-id")}, nil
}

func (m *mockS3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if m.uploadPartErr != nil {
		return nil, m.uploadPartErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.parts = append(m.parts, data)
	return &s3.UploadPartOutput{ETag: aws.String("test-etag")}, nil
}

func (m *mockS3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	m.completed = true
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (m *mockS3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	m.aborted = true
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestS3SinkPartSizeValidation(t *testing.T) {
	client := &mockS3Client{}

	_, err := NewS3Sink(context.Background(), client, "bucket", "key", &S3Options{PartSize: 1024})
	assert.ErrorIs(t, err, ErrInvalidValue, "part size below 5MB is rejected")

	_, err = NewS3Sink(context.Background(), client, "bucket", "key", &S3Options{PartSize: 5 * 1024 * 1024})
	assert.NoError(t, err)
}

func TestS3SinkLifecycle(t *testing.T) {
	client := &mockS3Client{}
	sink, err := NewS3Sink(context.Background(), client, "bucket", "key")
	require.NoError(t, err)
	assert.True(t, client.created, "multipart upload initiated on construction")

	payload := []byte("some workbook bytes")
	n, err := sink.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Empty(t, client.parts, "small writes stay buffered")

	require.NoError(t, sink.Close())
	assert.True(t, client.completed)
	require.Len(t, client.parts, 1, "final part flushed on close")
	assert.Equal(t, payload, client.parts[0])
	assert.Equal(t, int64(len(payload)), sink.TotalBytes())
	assert.Equal(t, 1, sink.PartCount())
}

func TestS3SinkSplitsParts(t *testing.T) {
	client := &mockS3Client{}
	opts := &S3Options{PartSize: 5 * 1024 * 1024}
	sink, err := NewS3Sink(context.Background(), client, "bucket", "key", opts)
	require.NoError(t, err)

	chunk := bytes.Repeat([]byte("z"), 1024*1024)
	for i := 0; i < 11; i++ {
		_, err := sink.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, sink.Close())

	assert.Equal(t, 3, sink.PartCount(), "11MB at 5MB parts is 2 full parts plus the tail")
	var total int
	for _, p := range client.parts {
		total += len(p)
	}
	assert.Equal(t, 11*1024*1024, total)
}

func TestS3SinkAbortsOnCompleteFailure(t *testing.T) {
	client := &mockS3Client{completeErr: errors.New("denied")}
	sink, err := NewS3Sink(context.Background(), client, "bucket", "key")
	require.NoError(t, err)

	_, err = sink.Write([]byte("data"))
	require.NoError(t, err)

	err = sink.Close()
	assert.Error(t, err)
	assert.True(t, client.aborted, "failed completion aborts the upload")
}

func TestS3SinkUploadPartFailure(t *testing.T) {
	client := &mockS3Client{uploadPartErr: errors.New("throttled")}
	opts := &S3Options{PartSize: 5 * 1024 * 1024}
	sink, err := NewS3Sink(context.Background(), client, "bucket", "key", opts)
	require.NoError(t, err)

	chunk := bytes.Repeat([]byte("z"), 6*1024*1024)
	_, err = sink.Write(chunk)
	assert.Error(t, err, "part upload failure surfaces from Write")
}
