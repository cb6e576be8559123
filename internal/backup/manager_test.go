package backup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/mcutil/internal/config"
	"github.com/kebairia/mcutil/internal/logger"
)

func newTestManager(t *testing.T) (*Manager, string, string) {
	t.Helper()
	serverDir := t.TempDir()
	backupDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Dir: serverDir},
		Backup: config.BackupConfig{
			Dir:       backupDir,
			Layout:    config.LayoutDaily,
			Retention: 7,
		},
	}
	return NewManager(cfg, logger.Nop()), serverDir, backupDir
}

func TestCreateQuickBackup(t *testing.T) {
	mgr, serverDir, backupDir := newTestManager(t)
	writeFile(t, filepath.Join(serverDir, "world", "level.dat"), "0123456789")
	writeFile(t, filepath.Join(serverDir, "server.properties"), "motd=")

	entry, err := mgr.Create(KindQuick, "")
	require.NoError(t, err)

	assert.Equal(t, 1, entry.Sequence)
	assert.Equal(t, "backup_001_quick.zip", entry.Filename)
	assert.Equal(t, 2, entry.FileCount)

	entries := readArchive(t, entry.Path)
	require.Len(t, entries, 2)
	assert.Equal(t, "0123456789", entries["world/level.dat"])
	assert.Equal(t, "motd=", entries["server.properties"])

	// Today's bucket holds exactly one record.
	bucket := filepath.Join(backupDir, time.Now().Format("2006-01-02"))
	recs := mgr.Catalog().List()
	require.Len(t, recs, 1)
	assert.Equal(t, filepath.Base(bucket), recs[0].Bucket)
}

func TestSecondBackupSameDayGetsNextSequence(t *testing.T) {
	mgr, serverDir, _ := newTestManager(t)
	writeFile(t, filepath.Join(serverDir, "server.properties"), "motd=")

	first, err := mgr.Create(KindQuick, "")
	require.NoError(t, err)
	second, err := mgr.Create(KindQuick, "")
	require.NoError(t, err)

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)

	// Deleting the first leaves the second's number unchanged.
	_, err = mgr.Catalog().Delete(first.Filename)
	require.NoError(t, err)
	entries := mgr.Catalog().List()
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Sequence)
}

func TestCreateWithCustomName(t *testing.T) {
	mgr, serverDir, _ := newTestManager(t)
	writeFile(t, filepath.Join(serverDir, "server.properties"), "motd=")

	entry, err := mgr.Create(KindQuick, "before-update")
	require.NoError(t, err)
	assert.Equal(t, "before-update.zip", entry.Filename)
	assert.Equal(t, "before-update", entry.CustomName)
}

func TestCreateUnknownKind(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	_, err := mgr.Create(Kind("hourly"), "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCreateMissingServerDir(t *testing.T) {
	backupDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Dir: filepath.Join(backupDir, "gone")},
		Backup: config.BackupConfig{Dir: backupDir, Layout: config.LayoutDaily},
	}
	mgr := NewManager(cfg, logger.Nop())
	_, err := mgr.Create(KindQuick, "")
	assert.Error(t, err)
}

func TestCreateRunsRetention(t *testing.T) {
	mgr, serverDir, backupDir := newTestManager(t)
	mgr.retention = 2
	writeFile(t, filepath.Join(serverDir, "server.properties"), "motd=")

	// Pre-seed two old buckets; the new backup's cleanup pass removes the
	// oldest.
	for _, day := range []string{"2026-08-01", "2026-08-02"} {
		addBackup(t, mgr.catalog, filepath.Join(backupDir, day), record(1, "backup_001_quick.zip"))
	}

	_, err := mgr.Create(KindQuick, "")
	require.NoError(t, err)

	buckets := listBuckets(t, backupDir)
	assert.Len(t, buckets, 2)
	assert.NotContains(t, buckets, "2026-08-01")
}

func TestStats(t *testing.T) {
	mgr, serverDir, _ := newTestManager(t)
	writeFile(t, filepath.Join(serverDir, "world", "level.dat"), "data")
	writeFile(t, filepath.Join(serverDir, "server.properties"), "motd=")

	_, err := mgr.Create(KindQuick, "")
	require.NoError(t, err)
	_, err = mgr.Create(KindFull, "")
	require.NoError(t, err)

	stats := mgr.Catalog().Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByKind[KindQuick])
	assert.Equal(t, 1, stats.ByKind[KindFull])
	assert.Equal(t, 1, stats.BackupDays)
	assert.Positive(t, stats.TotalSize)
	assert.False(t, stats.Latest.IsZero())
}
