// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive copies finished sweep outputs to Google Cloud Storage.
//
// Objects are named gs://<bucket>/<prefix>/<run-id>/<basename>, so every
// sweep lands in its own folder and reruns never overwrite each other.
// Archiving happens after the results file is closed; a failed upload does
// not affect the local copy.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Uploader stores a local file as an object.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, objectPath string) error
	Close() error
}

// -----------------------------------------------------------------------------
// GCS client
// -----------------------------------------------------------------------------

// Client uploads to one GCS bucket.
type Client struct {
	storageClient *storage.Client
	BucketName    string
}

// NewClient creates a GCS client for bucketName.
//
// # Description
//
// With a credentials file, that service account key is used. Without one,
// Application Default Credentials are used.
//
// # Outputs
//
//   - *Client: Client bound to the bucket; call Close when done
//   - error: Missing key file or client creation failure
func NewClient(ctx context.Context, bucketName, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not found at path: %s: %w", credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}

	return &Client{
		storageClient: storageClient,
		BucketName:    bucketName,
	}, nil
}

// UploadFile copies localPath to objectPath in the bucket.
func (c *Client) UploadFile(ctx context.Context, localPath, objectPath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer localFile.Close()

	writer := c.storageClient.Bucket(c.BucketName).Object(objectPath).NewWriter(ctx)
	writer.ContentType = contentType(localPath)
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, localFile); err != nil {
		writer.Close()
		return fmt.Errorf("copy %s to gs://%s/%s: %w", localPath, c.BucketName, objectPath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish gs://%s/%s: %w", c.BucketName, objectPath, err)
	}
	return nil
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.storageClient.Close()
}

func contentType(localPath string) string {
	switch filepath.Ext(localPath) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".prom":
		return "text/plain; version=0.0.4"
	default:
		return "application/octet-stream"
	}
}

// -----------------------------------------------------------------------------
// Archiver
// -----------------------------------------------------------------------------

// Archiver uploads a sweep's files under a per-run folder.
type Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
}

// NewArchiver creates an Archiver. bucket is only used to build the
// returned gs:// URIs; the uploader decides where bytes actually go.
func NewArchiver(uploader Uploader, bucket, prefix string) *Archiver {
	return &Archiver{uploader: uploader, bucket: bucket, prefix: prefix}
}

// Archive uploads each of paths and returns the URIs that succeeded.
//
// # Description
//
// Every path is attempted even if an earlier one fails. Empty paths are
// skipped so callers can pass optional outputs unconditionally.
//
// # Outputs
//
//   - []string: gs:// URIs of uploaded objects, in input order
//   - error: All upload failures joined, or nil
//
// # Examples
//
//	uris, err := a.Archive(ctx, runID, "results.csv", "satsweep.prom")
//	// gs://bucket/sweeps/<run-id>/results.csv, gs://bucket/sweeps/<run-id>/satsweep.prom
func (a *Archiver) Archive(ctx context.Context, runID string, paths ...string) ([]string, error) {
	var uris []string
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		object := ObjectPath(a.prefix, runID, p)
		if err := a.uploader.UploadFile(ctx, p, object); err != nil {
			errs = append(errs, err)
			continue
		}
		uris = append(uris, fmt.Sprintf("gs://%s/%s", a.bucket, object))
	}
	return uris, errors.Join(errs...)
}

// ObjectPath returns "<prefix>/<runID>/<basename of localPath>". An empty
// prefix is omitted.
func ObjectPath(prefix, runID, localPath string) string {
	return path.Join(prefix, runID, filepath.Base(localPath))
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockUploader records uploads. If UploadFunc is nil every upload succeeds.
type MockUploader struct {
	UploadFunc func(ctx context.Context, localPath, objectPath string) error

	// Uploads holds "<localPath> -> <objectPath>" for each call.
	Uploads []string
	Closed  bool

	mu sync.Mutex
}

// UploadFile records the call and delegates to UploadFunc.
func (m *MockUploader) UploadFile(ctx context.Context, localPath, objectPath string) error {
	m.mu.Lock()
	m.Uploads = append(m.Uploads, localPath+" -> "+objectPath)
	m.mu.Unlock()
	if m.UploadFunc == nil {
		return nil
	}
	return m.UploadFunc(ctx, localPath, objectPath)
}

// Close marks the mock closed.
func (m *MockUploader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Compile-time interface checks.
var (
	_ Uploader = (*Client)(nil)
	_ Uploader = (*MockUploader)(nil)
)
