package blob

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	putErr      error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte), contentType: make(map[string]string)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	if input.ContentType != nil {
		m.contentType[*input.Key] = *input.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestStoreRoundTrip(t *testing.T) {
	mock := newMockS3()
	s := &Store{client: mock, bucket: "ten99"}
	ctx := context.Background()

	if err := s.Put(ctx, "users/1/jobfiles/2/a-plan.pdf", strings.NewReader("%PDF"), 4, "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if mock.contentType["users/1/jobfiles/2/a-plan.pdf"] != "application/pdf" {
		t.Errorf("content type not forwarded")
	}

	r, err := s.Get(ctx, "users/1/jobfiles/2/a-plan.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(r)
	r.Close()
	if string(data) != "%PDF" {
		t.Errorf("data = %q", data)
	}

	if err := s.Delete(ctx, "users/1/jobfiles/2/a-plan.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "users/1/jobfiles/2/a-plan.pdf"); err == nil {
		t.Error("expected get after delete to fail")
	}
}

func TestStorePutError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("AccessDenied")
	s := &Store{client: mock, bucket: "ten99"}

	err := s.Put(context.Background(), "k", strings.NewReader("x"), 1, "")
	if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
		t.Errorf("err = %v", err)
	}
}

func TestStoreNotConfigured(t *testing.T) {
	s := New(Config{Bucket: "ten99"})
	if s.Configured() {
		t.Fatal("expected store without credentials to be unconfigured")
	}
	if err := s.Put(context.Background(), "k", strings.NewReader("x"), 1, ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("put err = %v", err)
	}
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("get err = %v", err)
	}

	configured := New(Config{Bucket: "ten99", AccessKey: "a", SecretKey: "s", Endpoint: "http://localhost:9000"})
	if !configured.Configured() {
		t.Error("expected store with credentials to be configured")
	}
}

func TestAttachmentKey(t *testing.T) {
	key := AttachmentKey(3, 14, `C:\Users\pat\My Invoice (final).pdf`)
	pattern := regexp.MustCompile(`^users/3/jobfiles/14/[0-9a-f-]{36}-My_Invoice__final_\.pdf$`)
	if !pattern.MatchString(key) {
		t.Errorf("key = %q", key)
	}

	if AttachmentKey(3, 14, "a.txt") == AttachmentKey(3, 14, "a.txt") {
		t.Error("expected distinct keys for repeated uploads")
	}
	if k := AttachmentKey(1, 1, "../../etc/passwd"); !strings.HasSuffix(k, "-passwd") {
		t.Errorf("key = %q, want path stripped", k)
	}
}
