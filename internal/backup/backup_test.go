package backup

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dining/totable/internal/database"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func enabledConfig(dbPath string) Config {
	return Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		DBPath:     dbPath,
		Passphrase: "correct-horse",
		Interval:   time.Hour,
	}
}

func TestManagerEnabled(t *testing.T) {
	if NewManager(Config{}, nil, slog.Default()).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !NewManager(enabledConfig("x.db"), nil, slog.Default()).Enabled() {
		t.Error("full config should be enabled")
	}
	cfg := enabledConfig("x.db")
	cfg.Passphrase = ""
	if NewManager(cfg, nil, slog.Default()).Enabled() {
		t.Error("missing passphrase should disable backups")
	}
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orders.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(enabledConfig(dbPath), db, slog.Default())
	mock := newMockS3()
	m.client = mock

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if !strings.HasPrefix(key, "backups/totable-") {
		t.Errorf("key = %q", key)
	}

	mock.mu.Lock()
	data, ok := mock.objects[key]
	mock.mu.Unlock()
	if !ok {
		t.Fatal("no object uploaded")
	}

	// Decrypts back to a SQLite database image.
	plaintext, err := Decrypt(data, "correct-horse")
	if err != nil {
		t.Fatalf("decrypt uploaded backup: %v", err)
	}
	if !strings.HasPrefix(string(plaintext), "SQLite format 3") {
		t.Error("decrypted backup is not a SQLite database")
	}
}

func TestRunNowNotConfigured(t *testing.T) {
	m := NewManager(Config{}, nil, slog.Default())
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error when not configured")
	}
}

func TestManagerStopSafety(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "orders.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(enabledConfig(dbPath), db, slog.Default())
	m.client = newMockS3()

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, slog.Default())

	m.Start(context.Background()) // no-op when disabled
	m.Stop()                      // should not block
}
