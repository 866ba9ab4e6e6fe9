package hnswdb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/hnswdb/blobstore"
	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/internal/hnsw"
	"github.com/hupe1980/hnswdb/internal/mapping"
	"github.com/hupe1980/hnswdb/internal/resource"
	"github.com/hupe1980/hnswdb/persistence"
	"golang.org/x/sync/errgroup"
)

// Save writes the index to dir as three files: the graph dump, the id
// mappings and metadata.yaml. Each file is replaced atomically and the
// metadata, which records the size and checksum of the other two, is
// renamed last. Inserts wait until the save completes.
func (idx *Index) Save(dir string) error {
	ctx := context.Background()
	start := time.Now()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var graphArt, mapArt persistence.Artifact
	err := persistence.AtomicSaveToDir(dir,
		persistence.File{
			Name: persistence.GraphFile,
			Write: func(w io.Writer) (err error) {
				graphArt, err = idx.writeGraph(ctx, w)
				return err
			},
		},
		persistence.File{
			Name: persistence.MappingsFile,
			Write: func(w io.Writer) (err error) {
				mapArt, err = idx.writeMappings(ctx, w)
				return err
			},
		},
		persistence.File{
			Name: persistence.MetadataFile,
			Write: func(w io.Writer) error {
				return persistence.WriteMetadata(w, idx.metadata(graphArt, mapArt))
			},
		},
	)
	err = ioError("save", err)

	written := graphArt.Size + mapArt.Size
	idx.metrics.RecordSave(written, time.Since(start), err)
	idx.logger.LogSave(ctx, dir, written, err)
	return err
}

// SaveToStore uploads the index as a new generation under prefix and then
// points <prefix>/CURRENT at it. A failed upload leaves CURRENT, and thus
// the previously committed generation, untouched.
func (idx *Index) SaveToStore(ctx context.Context, store blobstore.BlobStore, prefix string) error {
	start := time.Now()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	gen, err := uuid.NewV7()
	if err != nil {
		return ioError("save", err)
	}
	base := path.Join(prefix, gen.String())

	var graphArt, mapArt persistence.Artifact
	err = func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return blobstore.WriteStream(gctx, store, path.Join(base, persistence.GraphFile), func(w io.Writer) (err error) {
				graphArt, err = idx.writeGraph(gctx, w)
				return err
			})
		})
		g.Go(func() error {
			return blobstore.WriteStream(gctx, store, path.Join(base, persistence.MappingsFile), func(w io.Writer) (err error) {
				mapArt, err = idx.writeMappings(gctx, w)
				return err
			})
		})
		if err := g.Wait(); err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := persistence.WriteMetadata(&buf, idx.metadata(graphArt, mapArt)); err != nil {
			return err
		}
		if err := store.Put(ctx, path.Join(base, persistence.MetadataFile), buf.Bytes()); err != nil {
			return err
		}

		return store.Put(ctx, path.Join(prefix, blobstore.CurrentFile), []byte(gen.String()))
	}()
	err = ioError("save", err)

	written := graphArt.Size + mapArt.Size
	idx.metrics.RecordSave(written, time.Since(start), err)
	idx.logger.LogSave(ctx, base, written, err)
	return err
}

func (idx *Index) writeGraph(ctx context.Context, w io.Writer) (persistence.Artifact, error) {
	cw := persistence.NewChecksumWriter(resource.NewRateLimitedWriter(ctx, w, idx.rc))

	zw, err := persistence.NewCompressor(cw, idx.opts.compression)
	if err != nil {
		return persistence.Artifact{}, err
	}
	if _, err := idx.graph.WriteTo(zw); err != nil {
		_ = zw.Close()
		return persistence.Artifact{}, err
	}
	if err := zw.Close(); err != nil {
		return persistence.Artifact{}, err
	}

	return persistence.Artifact{
		Name:     persistence.GraphFile,
		Version:  persistence.GraphVersion,
		Size:     cw.Count(),
		Checksum: cw.Sum(),
	}, nil
}

func (idx *Index) writeMappings(ctx context.Context, w io.Writer) (persistence.Artifact, error) {
	cw := persistence.NewChecksumWriter(resource.NewRateLimitedWriter(ctx, w, idx.rc))

	if _, err := idx.mappings.WriteTo(cw); err != nil {
		return persistence.Artifact{}, err
	}

	return persistence.Artifact{
		Name:     persistence.MappingsFile,
		Version:  persistence.MappingsVersion,
		Size:     cw.Count(),
		Checksum: cw.Sum(),
	}, nil
}

func (idx *Index) metadata(graphArt, mapArt persistence.Artifact) *persistence.Metadata {
	gopts := idx.graph.Options()
	return &persistence.Metadata{
		FormatVersion:  persistence.MetadataVersion,
		IndexID:        idx.id.String(),
		Dimension:      idx.dim,
		Metric:         idx.metric.String(),
		VectorStorage:  idx.store != nil,
		Backend:        idx.Backend().String(),
		M:              gopts.M,
		EFConstruction: gopts.EFConstruction,
		EFSearch:       idx.opts.efSearch,
		Alpha:          gopts.Alpha,
		Count:          idx.mappings.Len(),
		Compression:    idx.opts.compression,
		Graph:          graphArt,
		Mappings:       mapArt,
		SavedAt:        time.Now().UTC(),
	}
}

// artifactSource abstracts where a saved index is read from.
type artifactSource interface {
	metadata(ctx context.Context) (*persistence.Metadata, error)
	// open returns the artifact's stored bytes after checking their size.
	open(ctx context.Context, a persistence.Artifact) (io.ReadCloser, error)
	String() string
}

// Load reads an index saved by Save. dim and metric must match what was
// saved. Options override the saved settings (vector storage, ef search,
// backend, compression of later saves). Every failure, including a
// dimension or metric mismatch, satisfies errors.Is(err, ErrIO).
func Load(dir string, dim int, metric distance.Metric, optFns ...Option) (*Index, error) {
	return load(context.Background(), dirSource(dir), dim, metric, optFns)
}

// LoadFromStore reads the generation that <prefix>/CURRENT points at.
func LoadFromStore(ctx context.Context, store blobstore.BlobStore, prefix string, dim int, metric distance.Metric, optFns ...Option) (*Index, error) {
	src := &storeSource{store: store, prefix: prefix}
	return load(ctx, src, dim, metric, optFns)
}

func load(ctx context.Context, src artifactSource, dim int, metric distance.Metric, optFns []Option) (*Index, error) {
	start := time.Now()

	idx, err := loadIndex(ctx, src, dim, metric, optFns)
	err = ioError("load", err)

	count := 0
	o := applyOptions(defaultOptions(), optFns)
	if idx != nil {
		count = idx.Len()
		o = idx.opts
	}
	o.metricsCollector.RecordLoad(count, time.Since(start), err)
	o.logger.LogLoad(ctx, src.String(), count, err)

	if err != nil {
		return nil, err
	}
	return idx, nil
}

func loadIndex(ctx context.Context, src artifactSource, dim int, metric distance.Metric, optFns []Option) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	md, err := src.metadata(ctx)
	if err != nil {
		return nil, err
	}
	if md.Dimension != dim {
		return nil, &ErrDimensionMismatch{Expected: dim, Actual: md.Dimension}
	}
	if md.Metric != metric.String() {
		return nil, fmt.Errorf("%w: saved %s, requested %s", ErrMetricMismatch, md.Metric, metric)
	}
	id, err := uuid.Parse(md.IndexID)
	if err != nil {
		return nil, persistence.Corruptf("index id %q", md.IndexID)
	}

	o := defaultOptions()
	o.efSearch = md.EFSearch
	o.vectorStorage = md.VectorStorage
	o.compression = md.Compression
	if b, err := distance.ParseBackend(md.Backend); err == nil {
		o.backend = b
	}
	o = applyOptions(o, optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}

	engine, err := distance.NewEngine(metric, o.backend, dim)
	if err != nil {
		return nil, err
	}

	graph, err := readArtifact(ctx, src, md.Graph, md.Compression, func(r io.Reader) (*hnsw.Graph, error) {
		return hnsw.Load(r, engine)
	})
	if err != nil {
		return nil, err
	}
	gopts := graph.Options()
	if gopts.Dimension != dim || gopts.M != md.M || gopts.EFConstruction != md.EFConstruction {
		return nil, persistence.Corruptf("graph parameters (dim %d, m %d, efc %d) disagree with metadata (dim %d, m %d, efc %d)",
			gopts.Dimension, gopts.M, gopts.EFConstruction, dim, md.M, md.EFConstruction)
	}

	mappings, err := readArtifact(ctx, src, md.Mappings, persistence.CompressionNone, func(r io.Reader) (*mapping.Mappings, error) {
		return mapping.Load(r, o.mappingShards, graph.Len())
	})
	if err != nil {
		return nil, err
	}
	if mappings.Len() != md.Count {
		return nil, persistence.Corruptf("%d mappings, metadata says %d", mappings.Len(), md.Count)
	}

	idx := assemble(id, metric, graph, mappings, o)
	if err := idx.fillStore(); err != nil {
		return nil, err
	}
	return idx, nil
}

const readBufferSize = 256 << 10

// readArtifact decodes one artifact and verifies the checksum of its stored
// bytes, including any bytes the decoder did not consume.
func readArtifact[T any](ctx context.Context, src artifactSource, a persistence.Artifact, c persistence.Compression, decode func(io.Reader) (T, error)) (T, error) {
	var zero T

	rc, err := src.open(ctx, a)
	if err != nil {
		return zero, err
	}
	defer rc.Close()

	cr := persistence.NewChecksumReader(bufio.NewReaderSize(rc, readBufferSize))
	dr, err := persistence.NewDecompressor(cr, c)
	if err != nil {
		return zero, err
	}

	v, err := decode(dr)
	_ = dr.Close()
	if err != nil {
		return zero, fmt.Errorf("%s: %w", a.Name, err)
	}

	if _, err := io.Copy(io.Discard, cr); err != nil {
		return zero, fmt.Errorf("%s: %w", a.Name, err)
	}
	if err := cr.Verify(a.Checksum); err != nil {
		return zero, fmt.Errorf("%s: %w", a.Name, err)
	}
	return v, nil
}

// fillStore copies the vectors of all mapped nodes out of the graph.
func (idx *Index) fillStore() error {
	if idx.store == nil {
		return nil
	}

	var err error
	idx.mappings.Range(func(_ uint64, node hnsw.NodeID) bool {
		v, ok := idx.graph.Vector(node)
		if !ok {
			err = persistence.Corruptf("mapped node %d is not in the graph", node)
			return false
		}
		if err = idx.rc.AcquireMemory(int64(idx.dim) * 4); err != nil {
			return false
		}
		err = idx.store.Set(node, v)
		return err == nil
	})
	return err
}

type dirSource string

func (d dirSource) String() string { return string(d) }

func (d dirSource) metadata(context.Context) (*persistence.Metadata, error) {
	var md *persistence.Metadata
	err := persistence.LoadFromFile(filepath.Join(string(d), persistence.MetadataFile), func(r io.Reader) (err error) {
		md, err = persistence.ReadMetadata(r)
		return err
	})
	return md, err
}

func (d dirSource) open(_ context.Context, a persistence.Artifact) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(string(d), a.Name))
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.Size() != a.Size {
		_ = f.Close()
		return nil, persistence.Corruptf("%s: size %d, metadata says %d", a.Name, info.Size(), a.Size)
	}
	return f, nil
}

type storeSource struct {
	store  blobstore.BlobStore
	prefix string
	base   string // resolved from CURRENT by metadata
}

func (s *storeSource) String() string {
	if s.base != "" {
		return s.base
	}
	return path.Join(s.prefix, blobstore.CurrentFile)
}

func (s *storeSource) metadata(ctx context.Context) (*persistence.Metadata, error) {
	current, err := blobstore.ReadAll(ctx, s.store, path.Join(s.prefix, blobstore.CurrentFile))
	if blobstore.IsNotFound(err) {
		return nil, fmt.Errorf("no generation committed under %q: %w", s.prefix, err)
	}
	if err != nil {
		return nil, err
	}
	gen := strings.TrimSpace(string(current))
	if gen == "" || strings.Contains(gen, "/") {
		return nil, persistence.Corruptf("CURRENT holds %q", gen)
	}
	s.base = path.Join(s.prefix, gen)

	data, err := blobstore.ReadAll(ctx, s.store, path.Join(s.base, persistence.MetadataFile))
	if err != nil {
		return nil, err
	}
	return persistence.ReadMetadata(bytes.NewReader(data))
}

func (s *storeSource) open(ctx context.Context, a persistence.Artifact) (io.ReadCloser, error) {
	blob, err := s.store.Open(ctx, path.Join(s.base, a.Name))
	if err != nil {
		return nil, err
	}
	if blob.Size() != a.Size {
		_ = blob.Close()
		return nil, persistence.Corruptf("%s: size %d, metadata says %d", a.Name, blob.Size(), a.Size)
	}

	rc, err := blob.ReadRange(ctx, 0, a.Size)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	return &blobReader{ReadCloser: rc, blob: blob}, nil
}

// blobReader closes the range reader and its blob together.
type blobReader struct {
	io.ReadCloser
	blob blobstore.Blob
}

func (r *blobReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.blob.Close(); err == nil {
		err = cerr
	}
	return err
}
