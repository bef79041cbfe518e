package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeS3 records the requests a test S3 endpoint receives.
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	status   int
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{bodies: make(map[string]string), status: http.StatusOK}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}

		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			f.bodies[r.URL.Path] = string(body)
		}
		status := f.status
		f.mu.Unlock()

		if r.Method == http.MethodDelete && status == http.StatusOK {
			status = http.StatusNoContent
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return f, server
}

func newTestS3Storage(t *testing.T, endpoint, prefix string) *S3Storage {
	t.Helper()
	storage, err := NewS3Storage(context.Background(), S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Prefix:          prefix,
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	return storage
}

func TestNewS3Storage(t *testing.T) {
	storage := newTestS3Storage(t, "http://localhost:4566/", "/clips/")

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want test-bucket", storage.bucket)
	}
	if storage.prefix != "clips" {
		t.Errorf("prefix = %v, want clips", storage.prefix)
	}
	if storage.endpoint != "http://localhost:4566" {
		t.Errorf("endpoint = %v", storage.endpoint)
	}
}

func TestS3Storage_Prepare(t *testing.T) {
	t.Run("bucket reachable", func(t *testing.T) {
		fake, server := newFakeS3(t)
		storage := newTestS3Storage(t, server.URL, "")

		if err := storage.Prepare(context.Background()); err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if len(fake.requests) != 1 || fake.requests[0] != "HEAD /test-bucket" {
			t.Errorf("unexpected requests: %v", fake.requests)
		}
	})

	t.Run("missing bucket", func(t *testing.T) {
		fake, server := newFakeS3(t)
		fake.status = http.StatusNotFound
		storage := newTestS3Storage(t, server.URL, "")

		if err := storage.Prepare(context.Background()); err == nil {
			t.Error("expected error for missing bucket")
		}
	})
}

func TestS3Storage_Save(t *testing.T) {
	fake, server := newFakeS3(t)
	storage := newTestS3Storage(t, server.URL, "batch-1")

	url, err := storage.Save(context.Background(), "speech_0.wav", bytes.NewReader([]byte("test content")))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	wantURL := server.URL + "/test-bucket/batch-1/speech_0.wav"
	if url != wantURL {
		t.Errorf("url = %v, want %v", url, wantURL)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	body, ok := fake.bodies["/test-bucket/batch-1/speech_0.wav"]
	if !ok {
		t.Fatalf("object not uploaded, requests: %v", fake.requests)
	}
	if !strings.Contains(body, "test content") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestS3Storage_Delete(t *testing.T) {
	fake, server := newFakeS3(t)
	storage := newTestS3Storage(t, server.URL, "")

	if err := storage.Delete(context.Background(), []string{"a_0.wav", "a_1.wav"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	want := []string{"DELETE /test-bucket/a_0.wav", "DELETE /test-bucket/a_1.wav"}
	if len(fake.requests) != len(want) {
		t.Fatalf("requests = %v, want %v", fake.requests, want)
	}
	for i := range want {
		if fake.requests[i] != want[i] {
			t.Errorf("request %d = %s, want %s", i, fake.requests[i], want[i])
		}
	}
}

func TestS3Storage_ObjectURL(t *testing.T) {
	storage := newTestS3Storage(t, "", "clips")

	got := storage.objectURL(storage.key("a_0.wav"))
	want := "https://test-bucket.s3.us-east-1.amazonaws.com/clips/a_0.wav"
	if got != want {
		t.Errorf("objectURL() = %v, want %v", got, want)
	}
}

func TestS3Storage_RejectsInvalidName(t *testing.T) {
	storage := newTestS3Storage(t, "http://localhost:4566", "")

	if _, err := storage.Save(context.Background(), "../x.wav", bytes.NewReader(nil)); err == nil {
		t.Error("expected error for invalid name")
	}
}
