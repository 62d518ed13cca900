package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/config"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Snapshot is the public, read-only rendition of approved content.
type Snapshot struct {
	ID           string       `json:"id"`
	UniversityID string       `json:"universityId"`
	ProfileID    string       `json:"profileId"`
	Kind         content.Kind `json:"kind"`
	Title        string       `json:"title"`
	Body         string       `json:"body,omitempty"`
	Revision     int64        `json:"revision"`
	ApprovedBy   string       `json:"approvedBy"`
	ApprovedAt   time.Time    `json:"approvedAt"`
}

func NewSnapshot(it *content.Item) Snapshot {
	return Snapshot{
		ID:           it.ID,
		UniversityID: it.UniversityID,
		ProfileID:    it.ProfileID,
		Kind:         it.Kind,
		Title:        it.Title,
		Body:         it.Body,
		Revision:     it.Revision,
		ApprovedBy:   it.UpdatedBy,
		ApprovedAt:   it.UpdatedAt,
	}
}

// ObjectKey is where the snapshot of content id lives in the bucket.
func ObjectKey(id string) string {
	return "content/" + id + ".json"
}

// MinIOPublisher writes approved snapshots to a bucket and removes them when content leaves
// the approved status.
type MinIOPublisher struct {
	client *minio.Client
	bucket string
}

// NewMinIOPublisher connects to MinIO and ensures the bucket exists.
func NewMinIOPublisher(ctx context.Context, cfg config.MinIOConfig) (*MinIOPublisher, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	p := &MinIOPublisher{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, p.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return p, nil
}

func (p *MinIOPublisher) Publish(ctx context.Context, it *content.Item) error {
	data, err := json.Marshal(NewSnapshot(it))
	if err != nil {
		return err
	}
	_, err = p.client.PutObject(ctx, p.bucket, ObjectKey(it.ID), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("publish %s: %w", it.ID, err)
	}
	return nil
}

// Unpublish removes the snapshot. Removing a snapshot that does not exist is not an error.
func (p *MinIOPublisher) Unpublish(ctx context.Context, id string) error {
	if err := p.client.RemoveObject(ctx, p.bucket, ObjectKey(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("unpublish %s: %w", id, err)
	}
	return nil
}

// PresignedURL returns a time-limited GET URL for the published snapshot of id.
func (p *MinIOPublisher) PresignedURL(ctx context.Context, id string, expires time.Duration) (string, error) {
	u, err := p.client.PresignedGetObject(ctx, p.bucket, ObjectKey(id), expires, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Ping checks that the bucket is reachable.
func (p *MinIOPublisher) Ping(ctx context.Context) error {
	ok, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s missing", p.bucket)
	}
	return nil
}
