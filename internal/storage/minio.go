package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	ConceptPrefix = "concepts/"
	ExportPrefix  = "exports/"
	conceptFile   = "concept.txt"
)

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (m *MinioStore) Bucket() string { return m.bucket }

// ConceptKey is where the raw concept of a job lives: concepts/<job>/concept.txt.
func ConceptKey(jobID string) string {
	return ConceptPrefix + path.Join(jobID, conceptFile)
}

func ExportKey(jobID, filename string) string {
	return ExportPrefix + path.Join(jobID, filename)
}

// JobIDFromConceptKey reverses ConceptKey. ok is false for keys outside the concept layout.
func JobIDFromConceptKey(key string) (string, bool) {
	if len(key) <= len(ConceptPrefix) || key[:len(ConceptPrefix)] != ConceptPrefix {
		return "", false
	}
	dir, file := path.Split(key[len(ConceptPrefix):])
	if file != conceptFile {
		return "", false
	}
	jobID := path.Clean(dir)
	if jobID == "." || jobID == "" || path.Dir(jobID) != "." {
		return "", false
	}
	return jobID, true
}

func (m *MinioStore) PutConcept(ctx context.Context, jobID string, concept []byte) (string, error) {
	key := ConceptKey(jobID)
	if err := m.put(ctx, key, concept, "text/plain; charset=utf-8"); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MinioStore) PutExport(ctx context.Context, jobID, filename, contentType string, content []byte) (string, error) {
	key := ExportKey(jobID, filename)
	if err := m.put(ctx, key, content, contentType); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MinioStore) put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m *MinioStore) GetObject(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data := new(bytes.Buffer)
	if _, err := data.ReadFrom(obj); err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data.Bytes(), nil
}
