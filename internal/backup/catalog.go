package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kebairia/mcutil/internal/config"
	"github.com/kebairia/mcutil/internal/logger"
)

// MetadataFilename is the per-bucket catalog document.
const MetadataFilename = "backups.json"

// ErrBackupNotFound indicates no catalog entry matched the identifier.
var ErrBackupNotFound = errors.New("backup not found")

var bucketKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// bucketDoc is the on-disk shape of a bucket's metadata.
// LastSequence remembers the highest number ever assigned so that deleting
// the newest backup cannot cause its number to be handed out again.
type bucketDoc struct {
	Backups      []Record `json:"backups"`
	LastSequence int      `json:"last_number,omitempty"`
}

// Entry is a catalog record joined with its on-disk location.
type Entry struct {
	Record
	Bucket string
	Path   string
}

// Catalog owns the durable backup metadata under a backup directory.
// Layout daily groups archives into YYYY-MM-DD buckets; layout flat keeps
// a single bucket at the directory root.
type Catalog struct {
	dir    string
	layout config.Layout
	log    logger.Logger
}

// NewCatalog returns a catalog over dir using the given layout.
func NewCatalog(dir string, layout config.Layout, log logger.Logger) *Catalog {
	return &Catalog{dir: dir, layout: layout, log: log}
}

// BucketDir returns the directory holding backups created at t.
func (c *Catalog) BucketDir(t time.Time) string {
	if c.layout == config.LayoutFlat {
		return c.dir
	}
	return filepath.Join(c.dir, t.Format("2006-01-02"))
}

// loadBucket reads a bucket's metadata. A missing or unreadable document
// degrades to an empty bucket rather than failing.
func (c *Catalog) loadBucket(bucketDir string) bucketDoc {
	var doc bucketDoc
	data, err := os.ReadFile(filepath.Join(bucketDir, MetadataFilename))
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		c.log.Warn("corrupt catalog metadata, treating bucket as empty",
			"bucket", bucketDir, "error", err)
		return bucketDoc{}
	}
	return doc
}

func (c *Catalog) saveBucket(bucketDir string, doc bucketDoc) error {
	if err := os.MkdirAll(bucketDir, 0o755); err != nil {
		return fmt.Errorf("create bucket directory %q: %w", bucketDir, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog metadata: %w", err)
	}
	path := filepath.Join(bucketDir, MetadataFilename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace catalog metadata: %w", err)
	}
	return nil
}

// NextSequence returns the sequence number the next backup in the bucket
// should take: 1 for an empty bucket, otherwise one past the highest number
// ever assigned.
func (c *Catalog) NextSequence(bucketDir string) int {
	doc := c.loadBucket(bucketDir)
	highest := doc.LastSequence
	for _, rec := range doc.Backups {
		if rec.Sequence > highest {
			highest = rec.Sequence
		}
	}
	return highest + 1
}

// Append records a completed backup in its bucket. A failed metadata write is
// a warning, not an error: the archive already exists and losing its metadata
// must not lose the archive.
func (c *Catalog) Append(bucketDir string, rec Record) {
	doc := c.loadBucket(bucketDir)
	doc.Backups = append(doc.Backups, rec)
	if rec.Sequence > doc.LastSequence {
		doc.LastSequence = rec.Sequence
	}
	if err := c.saveBucket(bucketDir, doc); err != nil {
		c.log.Warn("could not save backup metadata", "bucket", bucketDir, "error", err)
	}
}

// bucketDirs returns the catalog's bucket directories, newest first.
func (c *Catalog) bucketDirs() []string {
	if c.layout == config.LayoutFlat {
		return []string{c.dir}
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() && bucketKeyPattern.MatchString(e.Name()) {
			keys = append(keys, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	dirs := make([]string, len(keys))
	for i, k := range keys {
		dirs[i] = filepath.Join(c.dir, k)
	}
	return dirs
}

// List returns every recorded backup, newest bucket first, in stored order
// within a bucket. Records whose archive no longer exists on disk are
// silently dropped, so the listing self-heals after manual deletions.
func (c *Catalog) List() []Entry {
	var all []Entry
	for _, bucketDir := range c.bucketDirs() {
		doc := c.loadBucket(bucketDir)
		for _, rec := range doc.Backups {
			path := filepath.Join(bucketDir, rec.Filename)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			all = append(all, Entry{
				Record: rec,
				Bucket: filepath.Base(bucketDir),
				Path:   path,
			})
		}
	}
	return all
}

// Find resolves an identifier to a catalog entry. The identifier may be an
// exact filename, a filename without its .zip extension, or a case-sensitive
// substring of the filename; the first match in listing order wins.
func (c *Catalog) Find(identifier string) (Entry, bool) {
	for _, entry := range c.List() {
		if entry.Filename == identifier ||
			entry.Filename == identifier+".zip" ||
			strings.Contains(entry.Filename, identifier) {
			return entry, true
		}
	}
	return Entry{}, false
}

// Delete removes the backup matching identifier: the archive file, its
// metadata record, and, if the bucket ends up with no backups and no archive
// files, the bucket's metadata document and directory.
func (c *Catalog) Delete(identifier string) (Entry, error) {
	entry, ok := c.Find(identifier)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrBackupNotFound, identifier)
	}

	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return Entry{}, fmt.Errorf("delete archive %q: %w", entry.Path, err)
	}

	bucketDir := filepath.Dir(entry.Path)
	doc := c.loadBucket(bucketDir)
	kept := doc.Backups[:0]
	for _, rec := range doc.Backups {
		if rec.Filename != entry.Filename {
			kept = append(kept, rec)
		}
	}
	doc.Backups = kept

	if len(doc.Backups) > 0 {
		if err := c.saveBucket(bucketDir, doc); err != nil {
			c.log.Warn("could not save backup metadata", "bucket", bucketDir, "error", err)
		}
		return entry, nil
	}

	archives, _ := filepath.Glob(filepath.Join(bucketDir, "*.zip"))
	if len(archives) > 0 {
		if err := c.saveBucket(bucketDir, doc); err != nil {
			c.log.Warn("could not save backup metadata", "bucket", bucketDir, "error", err)
		}
		return entry, nil
	}

	// Bucket has no backups left: drop its metadata, then the directory
	// itself if nothing else lives there. The flat layout's root directory
	// is never removed.
	os.Remove(filepath.Join(bucketDir, MetadataFilename))
	if bucketDir != c.dir {
		if remaining, err := os.ReadDir(bucketDir); err == nil && len(remaining) == 0 {
			os.Remove(bucketDir)
		}
	}
	return entry, nil
}

// Cleanup prunes old backups beyond the retention count. Retention <= 0
// disables pruning. With the daily layout, pruning is bucket-granular: every
// bucket beyond the retention newest is removed wholesale with its entire
// contents. With the flat layout, the oldest archives beyond the retention
// count are deleted individually.
func (c *Catalog) Cleanup(retention int) {
	if retention <= 0 {
		return
	}

	if c.layout == config.LayoutFlat {
		entries := c.List()
		if len(entries) <= retention {
			return
		}
		// Stored order is append order, oldest first.
		for _, entry := range entries[:len(entries)-retention] {
			if _, err := c.Delete(entry.Filename); err != nil {
				c.log.Warn("could not prune backup", "file", entry.Filename, "error", err)
				continue
			}
			c.log.Info("pruned old backup", "file", entry.Filename)
		}
		return
	}

	dirs := c.bucketDirs()
	if len(dirs) <= retention {
		return
	}
	for _, old := range dirs[retention:] {
		if err := os.RemoveAll(old); err != nil {
			c.log.Warn("could not remove old bucket", "bucket", old, "error", err)
			continue
		}
		c.log.Info("removed old backup bucket", "bucket", filepath.Base(old))
	}
}
