package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"

	"gdd-orchestrator/internal/storage"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

// ConceptEvent reports a concept object landing under concepts/<job_id>/concept.txt.
type ConceptEvent struct {
	JobID     string
	ObjectKey string
	EventName string
}

type ConceptEventSource interface {
	Run(ctx context.Context, handler func(context.Context, ConceptEvent) error) error
}

type MinioConceptEventSource struct {
	client *minio.Client
	bucket string
}

func NewMinioConceptEventSource(client *minio.Client, bucket string) *MinioConceptEventSource {
	return &MinioConceptEventSource{client: client, bucket: bucket}
}

func (s *MinioConceptEventSource) Run(ctx context.Context, handler func(context.Context, ConceptEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, storage.ConceptPrefix, ".txt", []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				event, ok := toConceptEvent(record.S3.Object.Key, record.EventName)
				if !ok {
					continue
				}
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

func toConceptEvent(encodedKey, eventName string) (ConceptEvent, bool) {
	objectKey, err := decodeObjectKey(encodedKey)
	if err != nil {
		return ConceptEvent{}, false
	}
	jobID, ok := storage.JobIDFromConceptKey(objectKey)
	if !ok {
		return ConceptEvent{}, false
	}
	return ConceptEvent{JobID: jobID, ObjectKey: objectKey, EventName: eventName}, true
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.Trim(strings.TrimSpace(strings.ReplaceAll(decoded, "\\", "/")), "/")
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}
