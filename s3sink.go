package streamxlsx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client used by S3Sink. *s3.Client satisfies
// it; tests substitute a mock.
type s3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// S3Sink streams the archive to AWS S3 as a multipart upload. Bytes
// accumulate in a part buffer and are shipped whenever the buffer reaches
// the configured part size; Close uploads the final part and completes the
// upload. Cancellation arrives through the context passed at construction.
type S3Sink struct {
	client  s3API
	bucket  string
	key     string
	ctx     context.Context
	options *S3Options

	uploadID       *string
	buffer         *bytes.Buffer
	partNumber     int32
	completedParts []types.CompletedPart
	totalBytes     int64
}

// S3Options contains optional configuration for S3 uploads
type S3Options struct {
	// PartSize is the size of each multipart upload part in bytes (default: 32MB)
	// Must be at least 5MB (except for the last part)
	PartSize int64

	// ACL sets the canned ACL for the object (e.g., "private", "public-read")
	ACL types.ObjectCannedACL

	// ContentType sets the MIME type of the object (default: the XLSX MIME type)
	ContentType string

	// Metadata sets custom metadata for the object
	Metadata map[string]string

	// StorageClass sets the storage class (e.g., STANDARD, INTELLIGENT_TIERING, GLACIER)
	StorageClass types.StorageClass

	// ServerSideEncryption sets the server-side encryption method (e.g., AES256, aws:kms)
	ServerSideEncryption types.ServerSideEncryption

	// SSEKMSKeyId sets the KMS key ID for server-side encryption with KMS
	SSEKMSKeyId *string
}

// DefaultS3Options returns the default S3 options
func DefaultS3Options() *S3Options {
	return &S3Options{
		PartSize:    32 * 1024 * 1024,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
}

// NewS3Sink creates a new S3 sink that writes to the specified bucket and
// key, initiating the multipart upload immediately.
func NewS3Sink(ctx context.Context, client s3API, bucket, key string, options ...*S3Options) (*S3Sink, error) {
	opts := DefaultS3Options()
	if len(options) > 0 && options[0] != nil {
		opts = options[0]
	}
	if opts.PartSize < 5*1024*1024 {
		return nil, fmt.Errorf("%w: part size must be at least 5MB", ErrInvalidValue)
	}

	sink := &S3Sink{
		client:     client,
		bucket:     bucket,
		key:        key,
		ctx:        ctx,
		options:    opts,
		buffer:     new(bytes.Buffer),
		partNumber: 1,
	}
	if err := sink.initiateMultipartUpload(); err != nil {
		return nil, fmt.Errorf("initiate multipart upload: %w", err)
	}
	return sink, nil
}

// Write implements io.Writer interface
func (s *S3Sink) Write(p []byte) (n int, err error) {
	n, err = s.buffer.Write(p)
	s.totalBytes += int64(n)
	if s.buffer.Len() >= int(s.options.PartSize) {
		if err := s.uploadPart(); err != nil {
			return n, fmt.Errorf("upload part %d: %w", s.partNumber, err)
		}
	}
	return n, err
}

// Close uploads any buffered data as the final part and completes the
// multipart upload. On completion failure the upload is aborted so S3 does
// not keep billing for orphaned parts.
func (s *S3Sink) Close() error {
	if s.buffer.Len() > 0 {
		if err := s.uploadPart(); err != nil {
			return fmt.Errorf("upload final part: %w", err)
		}
	}
	if err := s.completeMultipartUpload(); err != nil {
		_ = s.abortMultipartUpload()
		return fmt.Errorf("complete multipart upload: %w", err)
	}
	return nil
}

func (s *S3Sink) initiateMultipartUpload() error {
	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		ContentType: aws.String(s.options.ContentType),
	}
	if s.options.ACL != "" {
		input.ACL = s.options.ACL
	}
	if s.options.Metadata != nil {
		input.Metadata = s.options.Metadata
	}
	if s.options.StorageClass != "" {
		input.StorageClass = s.options.StorageClass
	}
	if s.options.ServerSideEncryption != "" {
		input.ServerSideEncryption = s.options.ServerSideEncryption
	}
	if s.options.SSEKMSKeyId != nil {
		input.SSEKMSKeyId = s.options.SSEKMSKeyId
	}

	result, err := s.client.CreateMultipartUpload(s.ctx, input)
	if err != nil {
		return err
	}
	s.uploadID = result.UploadId
	return nil
}

func (s *S3Sink) uploadPart() error {
	if s.buffer.Len() == 0 {
		return nil
	}
	result, err := s.client.UploadPart(s.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.key),
		PartNumber: aws.Int32(s.partNumber),
		UploadId:   s.uploadID,
		Body:       bytes.NewReader(s.buffer.Bytes()),
	})
	if err != nil {
		return err
	}
	s.completedParts = append(s.completedParts, types.CompletedPart{
		ETag:       result.ETag,
		PartNumber: aws.Int32(s.partNumber),
	})
	s.buffer.Reset()
	s.partNumber++
	return nil
}

func (s *S3Sink) completeMultipartUpload() error {
	_, err := s.client.CompleteMultipartUpload(s.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key),
		UploadId: s.uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: s.completedParts,
		},
	})
	return err
}

func (s *S3Sink) abortMultipartUpload() error {
	if s.uploadID == nil {
		return nil
	}
	_, err := s.client.AbortMultipartUpload(s.ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key),
		UploadId: s.uploadID,
	})
	return err
}

// TotalBytes returns the total bytes written so far
func (s *S3Sink) TotalBytes() int64 {
	return s.totalBytes
}

// PartCount returns the number of parts uploaded
func (s *S3Sink) PartCount() int {
	return len(s.completedParts)
}

// Abort cancels the multipart upload (useful for error handling)
func (s *S3Sink) Abort() error {
	return s.abortMultipartUpload()
}
