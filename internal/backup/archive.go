package backup

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/kebairia/mcutil/internal/logger"
)

// ErrBuildArchive indicates the archive itself could not be written. The
// partial archive is removed before this is returned.
var ErrBuildArchive = errors.New("archive build failed")

// Progress holds the transient counters reported while an archive is written.
type Progress struct {
	FilesDone  int
	FilesTotal int
	BytesDone  int64
	BytesTotal int64
}

// ProgressFunc receives throttled progress updates during a build.
// current is the archive-relative name of the file just added.
type ProgressFunc func(p Progress, current string)

// Result summarizes a completed build.
type Result struct {
	FilesAdded     int
	BytesAdded     int64
	EstimatedBytes int64
	ArchiveSize    int64
	// Ratio is the compression ratio in percent, 0 when the estimate was 0.
	Ratio float64
}

// progressInterval bounds progress output to roughly two updates per second.
const progressInterval = 500 * time.Millisecond

// Builder streams a backup type's member set into a deflate-compressed zip.
type Builder struct {
	log      logger.Logger
	progress ProgressFunc
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithProgress installs a progress reporter.
func WithProgress(fn ProgressFunc) BuilderOption {
	return func(b *Builder) {
		b.progress = fn
	}
}

// NewBuilder returns an archive builder logging through log.
func NewBuilder(log logger.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{log: log}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type member struct {
	path string // absolute path on disk
	name string // slash-separated archive entry name
	size int64
}

// resolveMembers walks the source tree and returns the files the spec covers.
// Files that error or vanish during the scan are skipped with a warning; the
// server directory mutates while we read it.
func (b *Builder) resolveMembers(root string, spec TypeSpec) ([]member, error) {
	var members []member

	collect := func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			b.log.Warn("skipping unreadable path", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			b.log.Warn("skipping vanished file", "path", path, "error", err)
			return nil
		}
		members = append(members, member{
			path: path,
			name: filepath.ToSlash(rel),
			size: info.Size(),
		})
		return nil
	}

	if spec.IncludesEverything() {
		if err := filepath.WalkDir(root, collect); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrBuildArchive, root, err)
		}
		// Exclusions apply only in everything mode.
		filtered := members[:0]
		for _, m := range members {
			if !Excluded(m.name, spec.Exclude) {
				filtered = append(filtered, m)
			}
		}
		return filtered, nil
	}

	// Named-include mode: resolve each item; exclusions deliberately do not
	// apply here (see matcher.go for the matching they would have used).
	for _, item := range spec.Include {
		itemPath := filepath.Join(root, item)
		info, err := os.Stat(itemPath)
		if err != nil {
			b.log.Warn("include item not found", "item", item)
			continue
		}
		if !info.IsDir() {
			members = append(members, member{
				path: itemPath,
				name: filepath.ToSlash(item),
				size: info.Size(),
			})
			continue
		}
		if err := filepath.WalkDir(itemPath, collect); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrBuildArchive, itemPath, err)
		}
	}
	return members, nil
}

// Build resolves the member set for spec under root and writes it to dest as a
// zip archive with paths relative to root. Individual member failures are
// logged and skipped; a failure writing the archive aborts, removes the
// partial file, and returns an error.
func (b *Builder) Build(root string, spec TypeSpec, dest string) (Result, error) {
	members, err := b.resolveMembers(root, spec)
	if err != nil {
		return Result{}, err
	}

	prog := Progress{FilesTotal: len(members)}
	for _, m := range members {
		prog.BytesTotal += m.size
	}
	b.log.Info("starting archive",
		"destination", dest,
		"files", prog.FilesTotal,
		"bytes", prog.BytesTotal,
	)

	f, err := os.Create(dest)
	if err != nil {
		return Result{}, fmt.Errorf("%w: create %s: %v", ErrBuildArchive, dest, err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	abort := func(cause error) (Result, error) {
		zw.Close()
		f.Close()
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			b.log.Warn("could not remove partial archive", "path", dest, "error", rmErr)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrBuildArchive, cause)
	}

	lastEmit := time.Time{}
	emit := func(current string, final bool) {
		if b.progress == nil {
			return
		}
		if !final && time.Since(lastEmit) < progressInterval {
			return
		}
		lastEmit = time.Now()
		b.progress(prog, current)
	}

	for _, m := range members {
		src, err := os.Open(m.path)
		if err != nil {
			// Expected under a live server directory.
			b.log.Warn("skipping member", "file", m.name, "error", err)
			continue
		}
		w, err := zw.Create(m.name)
		if err != nil {
			src.Close()
			return abort(fmt.Errorf("create entry %s: %v", m.name, err))
		}
		n, err := io.Copy(w, src)
		src.Close()
		if err != nil {
			return abort(fmt.Errorf("write entry %s: %v", m.name, err))
		}
		prog.FilesDone++
		prog.BytesDone += n
		emit(m.name, false)
	}
	emit("", true)

	if err := zw.Close(); err != nil {
		return abort(fmt.Errorf("finalize archive: %v", err))
	}
	if err := f.Close(); err != nil {
		return abort(fmt.Errorf("close archive: %v", err))
	}

	info, err := os.Stat(dest)
	if err != nil {
		return Result{}, fmt.Errorf("%w: stat %s: %v", ErrBuildArchive, dest, err)
	}

	res := Result{
		FilesAdded:     prog.FilesDone,
		BytesAdded:     prog.BytesDone,
		EstimatedBytes: prog.BytesTotal,
		ArchiveSize:    info.Size(),
	}
	if res.EstimatedBytes > 0 {
		res.Ratio = 100 * (1 - float64(res.ArchiveSize)/float64(res.EstimatedBytes))
	}
	return res, nil
}
