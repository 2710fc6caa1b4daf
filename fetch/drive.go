// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/painelmultas/painel/utils/httputils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	sheetsMimeType = "application/vnd.google-apps.spreadsheet"
	xlsxMimeType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DriveOptions configures a DriveFetcher.
type DriveOptions struct {
	// CredentialsFile is a service account JSON key. Empty uses ADC.
	CredentialsFile string
	// Transport wraps the authenticated transport, e.g. for tracing.
	Transport http.RoundTripper
	// HTTPClient replaces authentication altogether (tests).
	HTTPClient *http.Client
	// Endpoint overrides the API base URL (tests).
	Endpoint string
}

// DriveFetcher downloads files from Google Drive. Native Google Sheets are
// exported as xlsx.
type DriveFetcher struct {
	svc *drive.Service
}

// NewDriveFetcher creates a read-only Drive client.
func NewDriveFetcher(ctx context.Context, opts DriveOptions) (*DriveFetcher, error) {
	var clientOpts []option.ClientOption

	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	} else {
		creds, err := driveCredentials(ctx, opts.CredentialsFile)
		if err != nil {
			return nil, err
		}

		base := httputils.NewClient(httputils.ClientOptions{Transport: opts.Transport})
		ctx := context.WithValue(ctx, oauth2.HTTPClient, base)
		clientOpts = append(clientOpts, option.WithHTTPClient(oauth2.NewClient(ctx, creds.TokenSource)))
	}

	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return &DriveFetcher{svc: svc}, nil
}

func driveCredentials(ctx context.Context, path string) (*google.Credentials, error) {
	if path == "" {
		creds, err := google.FindDefaultCredentials(ctx, drive.DriveReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("finding default credentials: %w", err)
		}

		return creds, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", path, err)
	}

	return creds, nil
}

// Fetch implements Fetcher.
func (f *DriveFetcher) Fetch(ctx context.Context, id string) (*File, error) {
	meta, err := f.svc.Files.Get(id).
		Fields("id", "name", "mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, driveError(id, err)
	}

	var resp *http.Response

	name := meta.Name
	if meta.MimeType == sheetsMimeType {
		resp, err = f.svc.Files.Export(id, xlsxMimeType).Context(ctx).Download()
		if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
			name += ".xlsx"
		}
	} else {
		resp, err = f.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	}

	if err != nil {
		return nil, driveError(id, err)
	}

	return &File{ReadCloser: resp.Body, Name: name}, nil
}

func driveError(id string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: drive file %s", ErrNotFound, id)
	}

	return fmt.Errorf("fetching drive file %s: %w", id, err)
}
