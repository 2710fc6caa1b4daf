// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "multas.csv"), []byte("a;b\n"), 0o600))

	tests := []struct {
		name    string
		fetcher LocalFetcher
		id      string
	}{
		{"relative to root", LocalFetcher{Root: dir}, "multas.csv"},
		{"absolute", LocalFetcher{Root: "/nowhere"}, filepath.Join(dir, "multas.csv")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.fetcher.Fetch(context.Background(), tt.id)
			require.NoError(t, err)
			defer f.Close()

			data, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, "a;b\n", string(data))
			assert.Equal(t, "multas.csv", f.Name)
		})
	}
}

func TestLocalFetcher_Missing(t *testing.T) {
	_, err := LocalFetcher{Root: t.TempDir()}.Fetch(context.Background(), "nope.xlsx")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// driveServer fakes the three Drive endpoints the fetcher uses.
func driveServer(t *testing.T, mimeType string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/files/missing"):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "File not found: missing."}}`))
		case strings.HasSuffix(r.URL.Path, "/files/abc/export"):
			assert.Equal(t, xlsxMimeType, r.URL.Query().Get("mimeType"))
			_, _ = w.Write([]byte("exported"))
		case strings.HasSuffix(r.URL.Path, "/files/abc") && r.URL.Query().Get("alt") == "media":
			_, _ = w.Write([]byte("binary"))
		case strings.HasSuffix(r.URL.Path, "/files/abc"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "abc", "name": "Multas", "mimeType": "` + mimeType + `"}`))
		default:
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestDriveFetcher(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		wantBody string
		wantName string
	}{
		{"google sheet is exported", sheetsMimeType, "exported", "Multas.xlsx"},
		{"uploaded file is downloaded", xlsxMimeType, "binary", "Multas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := driveServer(t, tt.mimeType)

			f, err := NewDriveFetcher(context.Background(), DriveOptions{
				HTTPClient: srv.Client(),
				Endpoint:   srv.URL + "/drive/v3/",
			})
			require.NoError(t, err)

			file, err := f.Fetch(context.Background(), "abc")
			require.NoError(t, err)
			defer file.Close()

			data, err := io.ReadAll(file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(data))
			assert.Equal(t, tt.wantName, file.Name)
		})
	}
}

func TestDriveFetcher_NotFound(t *testing.T) {
	srv := driveServer(t, xlsxMimeType)

	f, err := NewDriveFetcher(context.Background(), DriveOptions{
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/drive/v3/",
	})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestDriveCredentials_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := driveCredentials(context.Background(), path)
	assert.Error(t, err)

	_, err = driveCredentials(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
