// Package service implements the delivery core of the poll endpoint: it
// decides between encrypting a fresh bundle on demand and serving a
// pre-materialized archive, and it owns the transport of archived bytes.
package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/veridian-identity/setpoll/internal/archive"
	"github.com/veridian-identity/setpoll/internal/envelope"
	"github.com/veridian-identity/setpoll/internal/metrics"
	"github.com/veridian-identity/setpoll/internal/objectstore"
	"github.com/veridian-identity/setpoll/internal/timebucket"
)

// ErrNoArchive is returned in archived mode when no record exists for the
// requested bucket. It is an expected steady-state condition, not a fault.
var ErrNoArchive = errors.New("no archive record for bucket")

// DeliveryMode selects between on-demand encryption and archived bundles.
// It is a deployment-wide switch resolved once at construction.
type DeliveryMode int

const (
	ModeLive DeliveryMode = iota
	ModeArchived
)

// StreamMode selects how archived objects reach the response body.
type StreamMode int

const (
	StreamBuffered StreamMode = iota
	StreamSingleShot
)

type EventStore interface {
	ReadEvents(ctx context.Context, bucket time.Time) (map[string]string, error)
}

type ObjectStore interface {
	Head(ctx context.Context, key string) (*objectstore.ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	GetRange(ctx context.Context, key, rangeSpec string) ([]byte, error)
}

type PollService struct {
	events    EventStore
	archives  archive.Repository
	objects   ObjectStore
	publicKey *rsa.PublicKey
	mode      DeliveryMode
	stream    StreamMode
	chunkSize int64
}

type Options struct {
	ServeFromArchive bool
	StreamEnabled    bool
	StreamChunkSize  int64
}

func NewPollService(events EventStore, archives archive.Repository, objects ObjectStore, publicKey *rsa.PublicKey, opts Options) *PollService {
	mode := ModeLive
	if opts.ServeFromArchive {
		mode = ModeArchived
	}
	stream := StreamSingleShot
	if opts.StreamEnabled {
		stream = StreamBuffered
	}

	return &PollService{
		events:    events,
		archives:  archives,
		objects:   objects,
		publicKey: publicKey,
		mode:      mode,
		stream:    stream,
		chunkSize: opts.StreamChunkSize,
	}
}

// Delivery is a prepared response for one bucket. EncryptedKey and IV are
// base64, ready to place in headers. WriteBody produces the body exactly
// once; a write failure aborts delivery without retry, since a partially
// written ciphertext is unrecoverable by the receiver.
type Delivery struct {
	EncryptedKey string
	IV           string
	Filename     string
	ContentType  string
	EventCount   int
	WriteBody    func(w io.Writer) error
}

// Deliver prepares the response for a resolved bucket according to the
// configured delivery mode.
func (s *PollService) Deliver(ctx context.Context, bucket time.Time) (*Delivery, error) {
	if s.mode == ModeArchived {
		return s.deliverArchived(ctx, bucket)
	}
	return s.deliverLive(ctx, bucket)
}

// deliverLive assembles whatever events the bucket currently holds and
// encrypts them on the spot. An empty bucket still produces an encrypted
// (empty) bundle; live mode never reports not-found.
func (s *PollService) deliverLive(ctx context.Context, bucket time.Time) (*Delivery, error) {
	events, err := s.events.ReadEvents(ctx, bucket)
	if err != nil {
		return nil, err
	}

	env, err := envelope.Encrypt([]byte(assembleBundle(events)), bucket, s.publicKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt bundle: %w", err)
	}

	metrics.RenderedEventsTotal.Add(float64(len(events)))

	return &Delivery{
		EncryptedKey: base64.StdEncoding.EncodeToString(env.Key),
		IV:           base64.StdEncoding.EncodeToString(env.IV),
		Filename:     env.Filename,
		ContentType:  "application/octet-stream",
		EventCount:   len(events),
		WriteBody: func(w io.Writer) error {
			_, err := w.Write(env.Data)
			return err
		},
	}, nil
}

func (s *PollService) deliverArchived(ctx context.Context, bucket time.Time) (*Delivery, error) {
	rec, err := s.archives.FindByBucket(ctx, timebucket.Key(bucket))
	if errors.Is(err, archive.ErrNotFound) {
		return nil, ErrNoArchive
	}
	if err != nil {
		return nil, fmt.Errorf("archive lookup: %w", err)
	}

	events, err := s.events.ReadEvents(ctx, bucket)
	if err != nil {
		return nil, err
	}

	delivery := &Delivery{
		EncryptedKey: rec.EncryptedKey,
		IV:           rec.IV,
		Filename:     rec.Filename,
		ContentType:  "application/octet-stream",
		EventCount:   len(events),
	}

	if s.stream == StreamBuffered {
		info, err := s.objects.Head(ctx, rec.Filename)
		if err != nil {
			return nil, fmt.Errorf("stat archive object: %w", err)
		}
		if info.ContentType != "" {
			delivery.ContentType = info.ContentType
		}
		delivery.WriteBody = func(w io.Writer) error {
			return s.streamChunks(ctx, w, rec.Filename, info.Size)
		}
	} else {
		delivery.WriteBody = func(w io.Writer) error {
			data, err := s.objects.Get(ctx, rec.Filename)
			if err != nil {
				return fmt.Errorf("fetch archive object: %w", err)
			}
			_, err = w.Write(data)
			return err
		}
	}

	return delivery, nil
}

// streamChunks pulls the object in bounded inclusive byte ranges, writing
// each chunk in ascending offset order. Ranges are never fetched in
// parallel; out-of-order writes would corrupt the ciphertext. The cursor
// advances by chunkSize+1 past each inclusive upper bound, which keeps
// coverage contiguous and matches the range sequence existing receivers see.
func (s *PollService) streamChunks(ctx context.Context, w io.Writer, key string, size int64) error {
	var cursor int64
	for cursor < size {
		end := cursor + s.chunkSize
		if end > size {
			end = size
		}

		chunk, err := s.objects.GetRange(ctx, key, fmt.Sprintf("bytes=%d-%d", cursor, end))
		if err != nil {
			return fmt.Errorf("fetch archive range: %w", err)
		}
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("write archive chunk: %w", err)
		}

		metrics.StreamChunksTotal.Inc()
		metrics.StreamedBytesTotal.Add(float64(len(chunk)))

		cursor += s.chunkSize + 1
	}
	return nil
}

// assembleBundle joins the serialized event tokens with CRLF. Ordering
// within a bucket follows the store's iteration order; receivers must not
// depend on it.
func assembleBundle(events map[string]string) string {
	if len(events) == 0 {
		return ""
	}
	tokens := make([]string, 0, len(events))
	for _, token := range events {
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, "\r\n")
}
