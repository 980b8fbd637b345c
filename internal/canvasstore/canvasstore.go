// Package canvasstore completes the teacher's empty storage/s3.go stub: a
// real gzip-compressed export of a room's operation-log snapshot to S3,
// the concrete "future store" spec §3 anticipates. Save uploads a snapshot
// and Fetch downloads and decodes one, but nothing in this build loads an
// archived snapshot back into a room (Non-goals: no persistence required
// for correctness).
package canvasstore

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"canvasroom/server/internal/oplog"
)

// Store archives room snapshots to S3.
type Store struct {
	client *s3.S3
	bucket string
}

// Open builds an S3-backed Store for bucket in region. An empty bucket
// disables archival: Open returns (nil, nil).
func Open(region, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return &Store{client: s3.New(sess), bucket: bucket}, nil
}

func objectKey(roomID string, at time.Time) string {
	return fmt.Sprintf("canvases/%s/%d.json.gz", roomID, at.UnixMilli())
}

// Save gzip-compresses snap and uploads it, returning the object key it
// was stored under. A nil Store is a no-op that returns an empty key.
func (s *Store) Save(roomID string, snap oplog.Snapshot) (string, error) {
	if s == nil {
		return "", nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot for room %s: %w", roomID, err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(raw); err != nil {
		return "", fmt.Errorf("failed to compress snapshot for room %s: %w", roomID, err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize compression for room %s: %w", roomID, err)
	}

	key := objectKey(roomID, time.Now())
	_, err = s.client.PutObject(&s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(compressed.Bytes()),
		ContentEncoding: aws.String("gzip"),
		ContentType:     aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot for room %s: %w", roomID, err)
	}
	return key, nil
}

// Fetch downloads and decompresses the snapshot stored at key.
func (s *Store) Fetch(key string) (oplog.Snapshot, error) {
	if s == nil {
		return oplog.Snapshot{}, fmt.Errorf("canvas store is not configured")
	}
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return oplog.Snapshot{}, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer out.Body.Close()

	gz, err := gzip.NewReader(out.Body)
	if err != nil {
		return oplog.Snapshot{}, fmt.Errorf("failed to decompress %s: %w", key, err)
	}
	defer gz.Close()

	var snap oplog.Snapshot
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return oplog.Snapshot{}, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return snap, nil
}
