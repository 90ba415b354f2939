// Package archive writes expired conversation transcripts to Cloud
// Storage before their sessions are evicted. Objects are JSON lines,
// one turn per line, named <prefix>/<user>/<timestamp>.jsonl.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	"github.com/maazq/expensebot/internal/domain"
)

const uploadTimeout = 2 * time.Minute

// GCSArchiver uploads transcripts with a shared storage client. It
// assumes Application Default Credentials are configured.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// NewGCSArchiver creates an archiver writing into the given bucket under
// the given object prefix.
func NewGCSArchiver(ctx context.Context, bucket, prefix string, log zerolog.Logger) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchiver: create storage client: %w", err)
	}
	return &GCSArchiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		log:    log,
	}, nil
}

// WithClock injects the time source used to name transcript objects.
func (a *GCSArchiver) WithClock(now func() time.Time) *GCSArchiver {
	a.now = now
	return a
}

// Close releases the underlying storage client.
func (a *GCSArchiver) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// ArchiveTranscript uploads the user's turns as a JSON-lines object.
// Empty transcripts are skipped.
func (a *GCSArchiver) ArchiveTranscript(userID string, turns []domain.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	object := a.objectName(userID)
	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"

	enc := json.NewEncoder(w)
	for _, turn := range turns {
		if err := enc.Encode(turn); err != nil {
			_ = w.Close()
			return fmt.Errorf("ArchiveTranscript: encode turn: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("ArchiveTranscript: finalize upload to gs://%s/%s: %w", a.bucket, object, err)
	}

	a.log.Info().
		Str("user_id", userID).
		Str("object", object).
		Int("turns", len(turns)).
		Msg("Archived conversation transcript")
	return nil
}

func (a *GCSArchiver) objectName(userID string) string {
	ts := a.now().UTC().Format("20060102T150405Z")
	return path.Join(a.prefix, userID, ts+".jsonl")
}
