// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snapbooth/internal/config"
	"github.com/tomtom215/snapbooth/internal/logging"
)

const metadataFilename = "metadata.json"

// Manager creates, lists, verifies and prunes backup archives.
type Manager struct {
	cfg      config.BackupConfig
	db       Database
	mediaDir string // empty when media is not archived
	now      func() time.Time

	// createMu serializes archive creation.
	createMu sync.Mutex

	mu       sync.RWMutex
	metadata *metadataStore

	onComplete func(b *Backup)
}

// NewManager creates the backup directory and loads existing metadata.
// mediaDir is the local upload directory; pass "" when uploads live in an
// object store.
func NewManager(cfg config.BackupConfig, db Database, mediaDir string) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("backup manager requires a database")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", cfg.Dir, err)
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = 6
	}
	if !cfg.IncludeMedia {
		mediaDir = ""
	}

	m := &Manager{
		cfg:      cfg,
		db:       db,
		mediaDir: mediaDir,
		now:      time.Now,
	}
	if err := m.loadMetadata(); err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("dir", cfg.Dir).Msg("Backup metadata unreadable, starting empty")
		}
		m.metadata = &metadataStore{Backups: make([]*Backup, 0)}
	}
	return m, nil
}

// SetOnBackupComplete registers fn to run after every completed backup.
func (m *Manager) SetOnBackupComplete(fn func(b *Backup)) {
	m.onComplete = fn
}

// DefaultType is full when media is archived, otherwise database.
func (m *Manager) DefaultType() Type {
	if m.mediaDir != "" {
		return TypeFull
	}
	return TypeDatabase
}

func (m *Manager) archivePath(b *Backup) string {
	return filepath.Join(m.cfg.Dir, b.Filename)
}

func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(m.cfg.Dir, metadataFilename))
	if err != nil {
		return err
	}
	var md metadataStore
	if err := json.Unmarshal(data, &md); err != nil {
		return err
	}
	if md.Backups == nil {
		md.Backups = make([]*Backup, 0)
	}
	m.mu.Lock()
	m.metadata = &md
	m.mu.Unlock()
	return nil
}

// saveMetadataLocked writes metadata.json; the caller holds mu.
func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.metadata, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(m.cfg.Dir, metadataFilename+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(m.cfg.Dir, metadataFilename))
}

// saveBackup inserts or replaces b in the metadata.
func (m *Manager) saveBackup(b *Backup) {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := false
	for i, existing := range m.metadata.Backups {
		if existing.ID == b.ID {
			m.metadata.Backups[i] = b
			replaced = true
			break
		}
	}
	if !replaced {
		m.metadata.Backups = append(m.metadata.Backups, b)
	}
	if err := m.saveMetadataLocked(); err != nil {
		logging.Error().Err(err).Str("backup_id", b.ID).Msg("Failed to save backup metadata")
	}
}

func (m *Manager) findLocked(id string) (*Backup, int) {
	for i, b := range m.metadata.Backups {
		if b.ID == id {
			return b, i
		}
	}
	return nil, -1
}

func cloneBackup(b *Backup) *Backup {
	c := *b
	if b.Files != nil {
		c.Files = append([]File(nil), b.Files...)
	}
	if b.RecordCount != nil {
		c.RecordCount = make(map[string]int64, len(b.RecordCount))
		for k, v := range b.RecordCount {
			c.RecordCount[k] = v
		}
	}
	return &c
}
