// Copyright 2025 The Painel Multas Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch retrieves the spreadsheet bytes given a file identifier.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is an open spreadsheet. Name is used to pick the parser.
type File struct {
	io.ReadCloser
	Name string
}

// Fetcher opens the file identified by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*File, error)
}

// ErrNotFound is returned when the identifier matches no file.
var ErrNotFound = errors.New("file not found")

// LocalFetcher reads files from disk. Relative ids resolve against Root.
type LocalFetcher struct {
	Root string
}

// Fetch implements Fetcher.
func (f LocalFetcher) Fetch(_ context.Context, id string) (*File, error) {
	path := id
	if !filepath.IsAbs(path) && f.Root != "" {
		path = filepath.Join(f.Root, path)
	}

	fd, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return &File{ReadCloser: fd, Name: filepath.Base(path)}, nil
}
