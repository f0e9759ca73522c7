// Command event-seeder fills buckets with fake security event tokens so a
// local setpoll service has something to deliver. It can also materialize
// an encrypted archive bundle and its lookup record for archived-mode
// testing.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/veridian-identity/setpoll/internal/archive"
	"github.com/veridian-identity/setpoll/internal/envelope"
	"github.com/veridian-identity/setpoll/internal/eventstore"
	"github.com/veridian-identity/setpoll/internal/timebucket"
)

var eventTypes = []string{
	"login-success",
	"login-failure",
	"mfa-enroll",
	"mfa-verify",
	"password-reset",
	"account-lockout",
}

func main() {
	count := flag.Int("count", 100, "number of events to generate")
	buckets := flag.Int("buckets", 5, "number of minute buckets to spread events over, ending now")
	redisURL := flag.String("redis-url", "redis://localhost:6379/0", "redis URL")
	retention := flag.Duration("retention", 24*time.Hour, "event retention")
	signingSecret := flag.String("signing-secret", "seeder-secret", "HMAC secret for fake event tokens")
	issuer := flag.String("issuer", "https://idp.example.com", "issuer claim for fake event tokens")

	archiveBucket := flag.String("archive-bucket", "", "bucket timestamp to materialize as an archive (e.g. 2024-01-01T00:00:00+00:00)")
	publicKeyPath := flag.String("public-key", "", "receiver public key PEM, required with -archive-bucket")
	outDir := flag.String("out-dir", ".", "directory for materialized archive objects")
	postgresURL := flag.String("postgres-url", "", "postgres URL for archive records; omit to skip record creation")
	flag.Parse()

	ctx := context.Background()

	store, err := eventstore.New(*redisURL, *retention)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer store.Close()

	now := time.Now().UTC().Truncate(time.Minute)
	for i := 0; i < *count; i++ {
		bucket := now.Add(-time.Duration(rand.Intn(*buckets)) * time.Minute)
		eventID := uuid.New().String()

		token, err := fakeEventToken(eventID, bucket, *issuer, *signingSecret)
		if err != nil {
			log.Fatalf("Failed to sign event token: %v", err)
		}
		if err := store.AddEvent(ctx, bucket, eventID, token); err != nil {
			log.Fatalf("Failed to store event: %v", err)
		}
	}
	log.Printf("Seeded %d events across %d buckets ending %s", *count, *buckets, timebucket.Key(now))

	if *archiveBucket == "" {
		return
	}

	bucket, ok := timebucket.Parse(*archiveBucket)
	if !ok {
		log.Fatalf("Invalid archive bucket timestamp: %q", *archiveBucket)
	}
	if *publicKeyPath == "" {
		log.Fatal("-public-key is required with -archive-bucket")
	}
	if err := materializeArchive(ctx, store, bucket, *publicKeyPath, *outDir, *postgresURL); err != nil {
		log.Fatalf("Failed to materialize archive: %v", err)
	}
}

// fakeEventToken builds a signed security event token with plausible
// claims. Receivers treat tokens as opaque strings, so HMAC signing is
// enough for seeding.
func fakeEventToken(eventID string, occurredAt time.Time, issuer, secret string) (string, error) {
	eventType := eventTypes[rand.Intn(len(eventTypes))]

	claims := jwt.MapClaims{
		"jti": eventID,
		"iss": issuer,
		"iat": occurredAt.Unix(),
		"events": map[string]interface{}{
			"https://schemas.example.com/secevent/attempts/event-type/" + eventType: map[string]interface{}{
				"subject": map[string]interface{}{
					"subject_type": "session",
					"session_id":   gofakeit.UUID(),
				},
				"email":      gofakeit.Email(),
				"ip_address": gofakeit.IPv4Address(),
				"user_agent": gofakeit.UserAgent(),
				"success":    rand.Float32() > 0.2,
			},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// materializeArchive encrypts one bucket's events the way the live path
// would, writes the ciphertext where the object store expects it, and
// records the wrapped key and IV for later lookup.
func materializeArchive(ctx context.Context, store *eventstore.RedisStore, bucket time.Time, publicKeyPath, outDir, postgresURL string) error {
	pubPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	pub, err := envelope.ParsePublicKey(pubPEM)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	events, err := store.ReadEvents(ctx, bucket)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	tokens := make([]string, 0, len(events))
	for _, token := range events {
		tokens = append(tokens, token)
	}

	env, err := envelope.Encrypt([]byte(strings.Join(tokens, "\r\n")), bucket, pub)
	if err != nil {
		return fmt.Errorf("encrypt bundle: %w", err)
	}

	objectPath := filepath.Join(outDir, env.Filename)
	if err := os.WriteFile(objectPath, env.Data, 0644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	log.Printf("Wrote archive object %s (%d events, %d bytes)", objectPath, len(tokens), len(env.Data))

	if postgresURL == "" {
		log.Println("No postgres URL - skipping archive record")
		return nil
	}

	repo, err := archive.NewPostgresRepository(ctx, postgresURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer repo.Close()

	rec := &archive.Record{
		RequestedTime: timebucket.Key(bucket),
		Filename:      env.Filename,
		EncryptedKey:  base64.StdEncoding.EncodeToString(env.Key),
		IV:            base64.StdEncoding.EncodeToString(env.IV),
	}
	if err := repo.Create(ctx, rec); err != nil {
		return fmt.Errorf("create archive record: %w", err)
	}
	log.Printf("Created archive record for %s", rec.RequestedTime)
	return nil
}
