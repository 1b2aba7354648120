package pipeline

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
)

// Archive names, as <Workflow>_output.zip and <Workflow>_logs.zip.
const (
	Workflow       = "ensemblefit"
	OutputArchive  = Workflow + "_output.zip"
	LogsArchive    = Workflow + "_logs.zip"
	archiveSuffix  = ".zip"
	archiveDirMode = 0o755
)

// Archive zips the output directory, without the logs and without earlier
// archives, and separately zips the log directory. Both archives are written
// into the output directory. Entries are prefixed with the archived
// directory's base name.
func Archive(job Job) ([]string, error) {
	if err := os.MkdirAll(job.Output, archiveDirMode); err != nil {
		return nil, pfx.Err(err)
	}

	logDir, err := filepath.Abs(job.LogDir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	output := filepath.Join(job.Output, OutputArchive)
	err = zipDir(job.Output, output, func(path string, d fs.DirEntry) bool {
		abs, err := filepath.Abs(path)
		if err == nil && abs == logDir {
			return true
		}
		return !d.IsDir() && filepath.Dir(path) == filepath.Clean(job.Output) && strings.HasSuffix(d.Name(), archiveSuffix)
	})
	if err != nil {
		return nil, err
	}

	logs := filepath.Join(job.Output, LogsArchive)
	if err := os.MkdirAll(job.LogDir, archiveDirMode); err != nil {
		return nil, pfx.Err(err)
	}
	if err := zipDir(job.LogDir, logs, nil); err != nil {
		return nil, err
	}

	return []string{output, logs}, nil
}

// zipDir writes every regular file under src into a new archive at dst.
// Entries for which skip returns true are left out; a skipped directory is
// left out entirely.
func zipDir(src, dst string, skip func(path string, d fs.DirEntry) bool) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return pfx.Err(err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = pfx.Err(cerr)
		}
	}()

	zw := zip.NewWriter(f)
	base := filepath.Base(filepath.Clean(src))

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dst {
			return nil
		}
		if skip != nil && path != src && skip(path, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(filepath.Join(base, rel)))
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		_, err = io.Copy(w, in)
		return err
	})
	if walkErr != nil {
		zw.Close()
		return pfx.Err(walkErr)
	}

	return pfx.Err(zw.Close())
}
