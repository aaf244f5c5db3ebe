package storage

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key  string
		want error
	}{
		{"documents/abc/agenda.pdf", nil},
		{"", ErrEmptyKey},
		{"documents/../secrets", ErrInvalidKey},
		{"/documents/abc", ErrInvalidKey},
		{"documents//abc", ErrInvalidKey},
		{"documents/abc..v2.pdf", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := validateKey(tt.key); !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"azure connection string", Config{ConnectionString: "UseDevelopmentStorage=true"}, false},
		{"azure account url", Config{AccountURL: "https://acct.blob.core.windows.net"}, false},
		{"azure missing auth", Config{}, true},
		{"minio complete", Config{Provider: ProviderMinio, Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, false},
		{"minio missing keys", Config{Provider: ProviderMinio, Endpoint: "localhost:9000"}, true},
		{"unknown provider", Config{Provider: "gcs"}, true},
		{"bad upload size", Config{ConnectionString: "x", MaxUploadSize: "lots"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaxUploadBytesDefault(t *testing.T) {
	cfg := Config{ConnectionString: "x"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if cfg.MaxUploadBytes() != 50*1024*1024 {
		t.Errorf("got %d", cfg.MaxUploadBytes())
	}
}

func TestNewMinioProvider(t *testing.T) {
	cfg := &Config{Provider: ProviderMinio, Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := sys.(*s3); !ok {
		t.Errorf("got %T, want *s3", sys)
	}
}
