package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/swarmdb"
	"github.com/hupe1980/swarmdb/blobstore"
	"github.com/hupe1980/swarmdb/codec"
	"github.com/hupe1980/swarmdb/internal/fs"
	"github.com/hupe1980/swarmdb/internal/hash"
	"github.com/hupe1980/swarmdb/internal/resource"
)

var (
	// ErrRunNotFound is returned when a run id has no manifest.
	ErrRunNotFound = errors.New("archive: run not found")
	// ErrNoCatalog is returned by catalog operations on an Archiver without
	// a Catalog.
	ErrNoCatalog = errors.New("archive: no catalog configured")
)

// ChecksumError reports a pulled log that does not match its manifest.
type ChecksumError struct {
	RunID     string
	WantSize  int64
	GotSize   int64
	WantCRC32 uint32
	GotCRC32  uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("archive: run %s corrupt: size %d/%d crc32c %08x/%08x",
		e.RunID, e.GotSize, e.WantSize, e.GotCRC32, e.WantCRC32)
}

// Options configures an Archiver.
type Options struct {
	// Prefix is the blob name prefix under which runs are stored.
	Prefix string
	// Compression is applied to pushed logs.
	Compression Compression
	// Level is the compression level, 0 selects the default.
	Level int
	// Codec encodes manifests.
	Codec codec.Codec
	// Catalog, if set, records every pushed run.
	Catalog Catalog
	// Resources limits concurrent transfers and their bandwidth.
	Resources *resource.Controller
	// Concurrency bounds PushAll.
	Concurrency int
	// DBOptions are used to open logs before pushing and after pulling.
	DBOptions []swarmdb.Option
	FS        fs.FileSystem
	Logger    *slog.Logger
}

// DefaultOptions are the options used by New.
var DefaultOptions = Options{
	Prefix:      "runs",
	Compression: CompressionZSTD,
	Codec:       codec.Default,
	Concurrency: 4,
}

// Archiver pushes sorted logs to a blob store and pulls them back.
//
// Only the sorted log is archived. Its indexes are rebuilt when a pulled log
// is opened.
type Archiver struct {
	store blobstore.BlobStore
	opts  Options
}

// New creates an Archiver over store.
func New(store blobstore.BlobStore, optFns ...func(o *Options)) *Archiver {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.FS == nil {
		opts.FS = fs.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Archiver{store: store, opts: opts}
}

// Push uploads a sorted log and returns its manifest.
func (a *Archiver) Push(ctx context.Context, datafile string) (*Manifest, error) {
	st, err := a.inspect(datafile)
	if err != nil {
		return nil, fmt.Errorf("push %s: %w", datafile, err)
	}

	if err := a.opts.Resources.AcquireTransfer(ctx); err != nil {
		return nil, err
	}
	defer a.opts.Resources.ReleaseTransfer()

	m := &Manifest{
		Version:     ManifestVersion,
		RunID:       uuid.NewString(),
		Name:        filepath.Base(datafile),
		Compression: a.opts.Compression,
		Records:     st.Records,
		Systems:     st.Systems,
		CreatedAt:   time.Now().UTC(),
	}
	if !math.IsNaN(st.FirstTime) {
		first, last := st.FirstTime, st.LastTime
		m.FirstTime, m.LastTime = &first, &last
	}

	logger := a.runLogger(m.RunID)
	logger.DebugContext(ctx, "archiving run", "file", datafile, "compression", m.Compression.String())

	start := time.Now()
	if err := a.upload(ctx, datafile, m); err != nil {
		return nil, fmt.Errorf("push %s: %w", datafile, err)
	}

	enc, err := encodeManifest(a.opts.Codec, m)
	if err != nil {
		return nil, err
	}
	if err := a.store.Put(ctx, manifestName(a.opts.Prefix, m.RunID), enc); err != nil {
		_ = a.store.Delete(ctx, dataName(a.opts.Prefix, m.RunID, m.Compression))
		return nil, fmt.Errorf("push %s: manifest: %w", datafile, err)
	}

	attrs := []any{
		"file", datafile,
		"records", m.Records,
		"bytes", m.Size,
		"stored", m.StoredSize,
		"compression", m.Compression.String(),
		"elapsed", time.Since(start),
	}
	if a.opts.Catalog != nil {
		e, err := a.opts.Catalog.Record(ctx, m.Name, m.RunID)
		if err != nil {
			return m, fmt.Errorf("push %s: catalog: %w", datafile, err)
		}
		attrs = append(attrs, "version", e.Version)
	}
	logger.InfoContext(ctx, "run archived", attrs...)
	return m, nil
}

func (a *Archiver) runLogger(runID string) *swarmdb.Logger {
	return (&swarmdb.Logger{Logger: a.opts.Logger}).WithRun(runID)
}

// PushAll pushes several logs concurrently. The returned manifests are in
// the order of files; on error the manifests of failed pushes are nil.
func (a *Archiver) PushAll(ctx context.Context, files []string) ([]*Manifest, error) {
	out := make([]*Manifest, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			m, err := a.Push(gctx, f)
			out[i] = m
			return err
		})
	}
	return out, g.Wait()
}

// Pull downloads a run to dst, verifies it against its manifest and opens it
// once so that its indexes exist.
func (a *Archiver) Pull(ctx context.Context, runID, dst string) (*Manifest, error) {
	m, err := a.Manifest(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := a.opts.Resources.AcquireTransfer(ctx); err != nil {
		return nil, err
	}
	defer a.opts.Resources.ReleaseTransfer()

	if err := a.download(ctx, m, dst); err != nil {
		return nil, fmt.Errorf("pull %s: %w", runID, err)
	}

	db, err := swarmdb.Open(dst, a.opts.DBOptions...)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", runID, err)
	}
	if err := db.Close(); err != nil {
		return nil, err
	}
	a.runLogger(runID).InfoContext(ctx, "run restored", "file", dst, "records", m.Records)
	return m, nil
}

// PullLatest pulls the newest run recorded in the catalog under name.
func (a *Archiver) PullLatest(ctx context.Context, name, dst string) (*Manifest, error) {
	if a.opts.Catalog == nil {
		return nil, ErrNoCatalog
	}
	e, err := a.opts.Catalog.Latest(ctx, name)
	if err != nil {
		return nil, err
	}
	return a.Pull(ctx, e.RunID, dst)
}

// Manifest fetches the manifest of a run.
func (a *Archiver) Manifest(ctx context.Context, runID string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, a.store, manifestName(a.opts.Prefix, runID))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return decodeManifest(data)
}

// Runs lists the ids of all archived runs.
func (a *Archiver) Runs(ctx context.Context) ([]string, error) {
	names, err := a.store.List(ctx, a.opts.Prefix+"/")
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, name := range names {
		rest := strings.TrimPrefix(name, a.opts.Prefix+"/")
		if id, ok := strings.CutSuffix(rest, "/manifest.json"); ok {
			runs = append(runs, id)
		}
	}
	slices.Sort(runs)
	return runs, nil
}

// Remove deletes a run from the store. Catalog entries are kept.
func (a *Archiver) Remove(ctx context.Context, runID string) error {
	m, err := a.Manifest(ctx, runID)
	if err != nil {
		return err
	}
	if err := a.store.Delete(ctx, manifestName(a.opts.Prefix, runID)); err != nil {
		return err
	}
	return a.store.Delete(ctx, dataName(a.opts.Prefix, runID, m.Compression))
}

func (a *Archiver) inspect(datafile string) (swarmdb.Stats, error) {
	db, err := swarmdb.Open(datafile, a.opts.DBOptions...)
	if err != nil {
		return swarmdb.Stats{}, err
	}
	defer db.Close()
	return db.Stats()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (a *Archiver) upload(ctx context.Context, datafile string, m *Manifest) error {
	f, err := a.opts.FS.OpenFile(datafile, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := a.store.Create(ctx, dataName(a.opts.Prefix, m.RunID, m.Compression))
	if err != nil {
		return err
	}
	cw := &countingWriter{w: resource.NewRateLimitedWriter(ctx, w, a.opts.Resources)}
	zw, err := newCompressor(cw, m.Compression, a.opts.Level)
	if err != nil {
		_ = w.Abort()
		return err
	}

	hr := hash.NewReader(f)
	if _, err := io.Copy(zw, hr); err != nil {
		_ = zw.Close()
		_ = w.Abort()
		return err
	}
	if err := zw.Close(); err != nil {
		_ = w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	m.Size = hr.Count()
	m.CRC32C = hr.Sum32()
	m.StoredSize = cw.n
	return nil
}

func (a *Archiver) download(ctx context.Context, m *Manifest, dst string) (err error) {
	b, err := a.store.Open(ctx, dataName(a.opts.Prefix, m.RunID, m.Compression))
	if err != nil {
		return err
	}
	defer b.Close()

	rc, err := blobstore.Stream(ctx, b)
	if err != nil {
		return err
	}
	defer rc.Close()

	zr, err := newDecompressor(resource.NewRateLimitedReader(ctx, rc, a.opts.Resources), m.Compression)
	if err != nil {
		return err
	}
	defer zr.Close()

	tmp := dst + ".tmp"
	f, err := a.opts.FS.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = a.opts.FS.Remove(tmp)
		}
	}()

	h := hash.NewCRC32C()
	n, err := io.Copy(io.MultiWriter(f, h), zr)
	if err != nil {
		return err
	}
	if n != m.Size || h.Sum32() != m.CRC32C {
		return &ChecksumError{
			RunID:     m.RunID,
			WantSize:  m.Size,
			GotSize:   n,
			WantCRC32: m.CRC32C,
			GotCRC32:  h.Sum32(),
		}
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return a.opts.FS.Rename(tmp, dst)
}
