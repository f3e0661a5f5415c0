package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Store is a BlobStore backed by an S3-compatible object store. Content
// lives under documents/<id>; descriptive metadata travels as S3 object
// metadata and is additionally cached in memory so list and search do not
// need a bucket scan.
type S3Store struct {
	client *s3.Client
	bucket string

	mu    sync.RWMutex
	index map[string]BlobMetadata
}

// S3Config holds connection settings for an S3Store.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // non-empty for MinIO or other S3-compatible stores
}

// NewS3Store builds an S3Store using the default AWS credential chain. A
// non-empty endpoint switches the client to path-style addressing for
// S3-compatible stores.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		index:  make(map[string]BlobMetadata),
	}, nil
}

func objectKey(id string) string {
	return "documents/" + id
}

// Upload validates inputs, streams the content to S3, and records metadata.
func (s *S3Store) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if err := validateUpload(&meta, int64(len(data))); err != nil {
		return nil, err
	}

	h := sha256.Sum256(data)

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()
	if meta.Tags == nil {
		meta.Tags = make(map[string]string)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(meta.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(meta.ContentType),
		Metadata:    encodeMeta(meta),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	s.mu.Lock()
	s.index[meta.ID] = meta
	s.mu.Unlock()

	out := meta
	return &out, nil
}

// Download streams the blob content from S3 along with its metadata.
func (s *S3Store) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	meta, err := s.GetMetadata(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil, ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("get object: %w", err)
	}

	return out.Body, meta, nil
}

// Delete removes the blob from S3 and the local index.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if _, err := s.GetMetadata(ctx, id); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	s.mu.Lock()
	delete(s.index, id)
	s.mu.Unlock()
	return nil
}

// GetMetadata returns blob metadata, consulting S3 when the local index does
// not have the entry (for example after a restart).
func (s *S3Store) GetMetadata(ctx context.Context, id string) (*BlobMetadata, error) {
	s.mu.RLock()
	meta, ok := s.index[id]
	s.mu.RUnlock()
	if ok {
		out := meta
		return &out, nil
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("head object: %w", err)
	}

	decoded := decodeMeta(id, head.Metadata)
	if head.ContentLength != nil {
		decoded.Size = *head.ContentLength
	}
	if head.ContentType != nil {
		decoded.ContentType = *head.ContentType
	}

	s.mu.Lock()
	s.index[id] = decoded
	s.mu.Unlock()

	out := decoded
	return &out, nil
}

// ListByPatient pages blobs for a patient from the local index.
func (s *S3Store) ListByPatient(_ context.Context, patientID, category string, limit, offset int) ([]*BlobMetadata, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*BlobMetadata
	for _, m := range s.index {
		if m.PatientID != patientID {
			continue
		}
		if category != "" && m.Category != category {
			continue
		}
		mm := m
		matched = append(matched, &mm)
	}

	total := len(matched)
	return pageOf(matched, limit, offset), total, nil
}

// Search pages blobs matching the given parameters from the local index.
func (s *S3Store) Search(_ context.Context, params SearchParams) ([]*BlobMetadata, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*BlobMetadata
	for _, m := range s.index {
		if !matchesSearch(&m, params) {
			continue
		}
		mm := m
		matched = append(matched, &mm)
	}

	total := len(matched)
	return pageOf(matched, params.Limit, params.Offset), total, nil
}

func encodeMeta(m BlobMetadata) map[string]string {
	out := map[string]string{
		"file-name":  m.FileName,
		"category":   m.Category,
		"hash":       m.Hash,
		"created-at": m.CreatedAt.Format(time.RFC3339),
		"created-by": m.CreatedBy,
	}
	if m.PatientID != "" {
		out["patient-id"] = m.PatientID
	}
	if m.ConsultationID != "" {
		out["consultation-id"] = m.ConsultationID
	}
	if m.ClaimID != "" {
		out["claim-id"] = m.ClaimID
	}
	return out
}

func decodeMeta(id string, raw map[string]string) BlobMetadata {
	m := BlobMetadata{
		ID:             id,
		FileName:       raw["file-name"],
		Category:       raw["category"],
		Hash:           raw["hash"],
		CreatedBy:      raw["created-by"],
		PatientID:      raw["patient-id"],
		ConsultationID: raw["consultation-id"],
		ClaimID:        raw["claim-id"],
		Tags:           make(map[string]string),
	}
	if ts, err := time.Parse(time.RFC3339, raw["created-at"]); err == nil {
		m.CreatedAt = ts
	}
	return m
}

