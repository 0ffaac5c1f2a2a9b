// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// archiveWriters closes file, gzip and tar writers in reverse order.
type archiveWriters struct {
	tw      *tar.Writer
	closers []io.Closer
}

func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

//nolint:gosec // G304: path is built from the configured backup directory
func (m *Manager) openArchive(path string) (*archiveWriters, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	gz, err := gzip.NewWriterLevel(out, m.cfg.CompressionLevel)
	if err != nil {
		_ = out.Close() //nolint:errcheck // cleanup on error
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)
	return &archiveWriters{tw: tw, closers: []io.Closer{out, gz, tw}}, nil
}

// writeArchive exports the database into a scratch directory and packs it,
// plus media for full backups, into the archive for b.
func (m *Manager) writeArchive(ctx context.Context, b *Backup) (err error) {
	scratch, err := os.MkdirTemp(m.cfg.Dir, ".export-")
	if err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	defer os.RemoveAll(scratch) //nolint:errcheck // scratch cleanup

	exportDir := filepath.Join(scratch, "database")
	if err := m.db.ExportTo(ctx, exportDir); err != nil {
		return err
	}

	aw, err := m.openArchive(m.archivePath(b))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := aw.Close(); err == nil {
			err = cerr
		}
	}()

	if err := addTree(ctx, aw.tw, exportDir, "database", "", b); err != nil {
		return err
	}
	if b.Type == TypeFull && m.mediaDir != "" {
		if err := addTree(ctx, aw.tw, m.mediaDir, "media", m.cfg.Dir, b); err != nil {
			return err
		}
	}
	return addMetadata(aw.tw, b)
}

// addTree adds every regular file under root to the archive below prefix,
// skipping the directory skip. A missing root adds nothing.
func addTree(ctx context.Context, tw *tar.Writer, root, prefix, skip string, b *Backup) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() && skip != "" && filepath.Clean(path) == filepath.Clean(skip) {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addFile(tw, path, prefix+"/"+filepath.ToSlash(rel), b)
	})
}

//nolint:gosec // G304: path comes from walking the export or media directory
func addFile(tw *tar.Writer, srcPath, name string, b *Backup) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", srcPath, err)
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(tw, hasher), f)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	b.Files = append(b.Files, File{
		Path:     name,
		Size:     n,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	})
	return nil
}

// addMetadata writes the backup record as the last archive entry.
func addMetadata(tw *tar.Writer, b *Backup) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}
	header := &tar.Header{
		Name:    "backup-metadata.json",
		Size:    int64(len(data)),
		Mode:    0o640,
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write metadata header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

//nolint:gosec // G304: path is inside the backup directory
func fileChecksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}
