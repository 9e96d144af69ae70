package upload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Minimal valid PNG header so content sniffing recognizes the type.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestLocalStore_Store(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	url, err := s.Store(context.Background(), pngBytes)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") {
		t.Errorf("Store() url = %q, want /uploads/ prefix", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("Store() url = %q, want .png suffix", url)
	}

	name := strings.TrimPrefix(url, "/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("stored file not readable: %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Error("stored file content mismatch")
	}
}

func TestLocalStore_Store_Errors(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", nil, ErrEmptyImage},
		{"not an image", []byte("just some text, definitely not an image"), ErrUnsupportedImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Store(context.Background(), tt.data)
			if err != tt.wantErr {
				t.Errorf("Store() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocalStore_Store_CancelledContext(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Store(ctx, pngBytes); err == nil {
		t.Error("Store() should fail with cancelled context")
	}
}

func TestLocalStore_UniqueNames(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	u1, _ := s.Store(context.Background(), pngBytes)
	u2, _ := s.Store(context.Background(), pngBytes)
	if u1 == u2 {
		t.Errorf("Store() should generate unique names, got %q twice", u1)
	}
}
