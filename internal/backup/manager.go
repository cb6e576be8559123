package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kebairia/mcutil/internal/config"
	"github.com/kebairia/mcutil/internal/logger"
)

// ErrUnknownKind indicates a backup type that is not configured.
var ErrUnknownKind = errors.New("unknown backup type")

// Manager ties the archive builder and the catalog together: it resolves the
// backup type, numbers and names the archive, builds it, records it, and runs
// retention afterwards.
type Manager struct {
	serverDir string
	retention int
	types     map[Kind]TypeSpec
	builder   *Builder
	catalog   *Catalog
	log       logger.Logger
	now       func() time.Time
}

// NewManager builds a Manager from configuration. Builder options (such as a
// progress reporter) are passed through to the archive builder.
func NewManager(cfg *config.Config, log logger.Logger, opts ...BuilderOption) *Manager {
	return &Manager{
		serverDir: cfg.Server.Dir,
		retention: cfg.Backup.Retention,
		types:     DefaultTypes(),
		builder:   NewBuilder(log, opts...),
		catalog:   NewCatalog(cfg.Backup.Dir, cfg.Backup.Layout, log),
		log:       log,
		now:       time.Now,
	}
}

// Catalog exposes the manager's catalog for listing and deletion.
func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

// Create produces one backup of the given kind. customName, when non-empty,
// overrides the generated backup_NNN_<kind> filename. The returned entry
// describes the recorded backup.
func (m *Manager) Create(kind Kind, customName string) (Entry, error) {
	spec, ok := m.types[kind]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if _, err := os.Stat(m.serverDir); err != nil {
		return Entry{}, fmt.Errorf("server directory %q: %w", m.serverDir, err)
	}

	now := m.now()
	bucketDir := m.catalog.BucketDir(now)
	if err := os.MkdirAll(bucketDir, 0o755); err != nil {
		return Entry{}, fmt.Errorf("create bucket directory %q: %w", bucketDir, err)
	}

	seq := m.catalog.NextSequence(bucketDir)
	filename := fmt.Sprintf("backup_%03d_%s.zip", seq, kind)
	if customName != "" {
		filename = customName + ".zip"
	}
	dest := filepath.Join(bucketDir, filename)

	m.log.Info("starting backup",
		"type", string(kind),
		"description", spec.Description,
		"destination", dest,
	)

	res, err := m.builder.Build(m.serverDir, spec, dest)
	if err != nil {
		return Entry{}, fmt.Errorf("backup %q: %w", kind, err)
	}

	rec := Record{
		Sequence:    seq,
		Filename:    filename,
		Kind:        kind,
		Description: spec.Description,
		CreatedAt:   now,
		SizeBytes:   res.ArchiveSize,
		FileCount:   res.FilesAdded,
		CustomName:  customName,
	}
	m.catalog.Append(bucketDir, rec)

	m.log.Info("backup completed",
		"file", filename,
		"files", res.FilesAdded,
		"original_size", humanize.Bytes(uint64(res.EstimatedBytes)),
		"compressed_size", humanize.Bytes(uint64(res.ArchiveSize)),
		"ratio", fmt.Sprintf("%.1f%%", res.Ratio),
	)

	m.catalog.Cleanup(m.retention)

	return Entry{
		Record: rec,
		Bucket: filepath.Base(bucketDir),
		Path:   dest,
	}, nil
}
