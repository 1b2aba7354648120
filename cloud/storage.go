package cloud

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/pfx"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// UploadParallelism bounds concurrent object writes in UploadTree.
const UploadParallelism = 8

// Storage wraps a Google Storage client. A nil *Storage can still open and
// fetch local paths.
type Storage struct {
	client *storage.Client
}

// NewStorage connects with application default credentials unless opts say
// otherwise.
func NewStorage(ctx context.Context, opts ...option.ClientOption) (*Storage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &Storage{client: client}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.client == nil {
		return nil
	}

	return s.client.Close()
}

// Open returns a reader over a local file or a gs:// object, along with its
// size.
func (s *Storage) Open(ctx context.Context, p string) (io.ReadCloser, int64, error) {
	if !IsGS(p) {
		f, err := os.Open(p)
		if err != nil {
			return nil, 0, pfx.Err(err)
		}
		fstat, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, pfx.Err(err)
		}
		return f, fstat.Size(), nil
	}

	handle, err := s.object(p)
	if err != nil {
		return nil, 0, err
	}

	r, err := handle.NewReader(ctx)
	if err != nil {
		return nil, 0, pfx.Err(fmt.Errorf("%s: %w", p, err))
	}

	return r, r.Attrs.Size, nil
}

// Fetch makes p available on local disk. Local paths are returned unchanged;
// gs:// objects are downloaded into dir under their base name.
func (s *Storage) Fetch(ctx context.Context, p, dir string) (string, error) {
	if !IsGS(p) {
		return p, nil
	}

	r, _, err := s.Open(ctx, p)
	if err != nil {
		return "", err
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pfx.Err(err)
	}
	local := filepath.Join(dir, path.Base(p))
	f, err := os.Create(local)
	if err != nil {
		return "", pfx.Err(err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", pfx.Err(fmt.Errorf("%s: %w", p, err))
	}
	if err := f.Close(); err != nil {
		return "", pfx.Err(err)
	}

	logging.New("cloud").Debug("fetched object", "src", p, "dst", local)

	return local, nil
}

// Upload copies one local file to the gs:// path dest.
func (s *Storage) Upload(ctx context.Context, local, dest string) error {
	handle, err := s.object(dest)
	if err != nil {
		return err
	}

	f, err := os.Open(local)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := handle.NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return pfx.Err(fmt.Errorf("%s: %w", dest, err))
	}

	return pfx.Err(w.Close())
}

// UploadTree copies every regular file under dir to prefix, keeping relative
// paths. It returns the uploaded object paths in walk order.
func (s *Storage) UploadTree(ctx context.Context, dir, prefix string) ([]string, error) {
	var locals, dests []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		locals = append(locals, p)
		dests = append(dests, Join(prefix, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	g := errgroup.Group{}
	g.SetLimit(UploadParallelism)
	for i := range locals {
		i := i
		g.Go(func() error {
			return s.Upload(ctx, locals[i], dests[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.New("cloud").Info("uploaded tree", "dir", dir, "prefix", prefix, "objects", len(dests))

	return dests, nil
}

// List returns the gs:// paths of every object under prefix.
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	bucket, object, err := SplitPath(prefix)
	if err != nil {
		return nil, err
	}
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("no storage client for %s", prefix)
	}

	var out []string
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: object})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}
		out = append(out, Scheme+bucket+"/"+attrs.Name)
	}

	return out, nil
}

func (s *Storage) object(p string) (*storage.ObjectHandle, error) {
	bucket, object, err := SplitPath(p)
	if err != nil {
		return nil, err
	}
	if object == "" {
		return nil, fmt.Errorf("%s names a bucket, not an object", p)
	}
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("no storage client for %s", p)
	}

	return s.client.Bucket(bucket).Object(object), nil
}
