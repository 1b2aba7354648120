// Package vcfcheck inspects a directory of VCFs before matrix generation so
// that an empty or unreadable directory fails fast instead of inside the
// external matrix generator.
package vcfcheck

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/ensemblefit"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"
)

const BufferSize = 4096 * 8

// File summarizes one VCF.
type File struct {
	Path        string
	Samples     []string
	Variants    int
	Chromosomes []string
}

// IsVCF reports whether name looks like a VCF, compressed or not.
func IsVCF(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".vcf") || strings.HasSuffix(lower, ".vcf.gz")
}

// Inventory reads every VCF directly inside dir, in name order. It fails if
// there are none, or if any of them has no variant records.
func Inventory(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var out []File
	for _, entry := range entries {
		if entry.IsDir() || !IsVCF(entry.Name()) {
			continue
		}

		f, err := Read(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if f.Variants == 0 {
			return nil, fmt.Errorf("%s has no variant records", f.Path)
		}
		out = append(out, f)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no .vcf or .vcf.gz files in %s", dir)
	}

	return out, nil
}

// Read counts the records of one VCF and the chromosomes they touch.
func Read(path string) (File, error) {
	fraw, err := os.Open(path)
	if err != nil {
		return File{}, pfx.Err(err)
	}

	f, err := ensemblefit.MaybeDecompressReadCloserFromFile(fraw)
	if err != nil {
		fraw.Close()
		return File{}, err
	}
	defer f.Close()

	// Lazy genotype parsing: only positions are needed here.
	rdr, err := vcfgo.NewReader(bufio.NewReaderSize(f, BufferSize), true)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}

	out := File{
		Path:    path,
		Samples: append([]string(nil), rdr.Header.SampleNames...),
	}

	chroms := make(map[string]struct{})
	for {
		variant := rdr.Read()
		if variant == nil {
			break
		}
		out.Variants++
		chroms[variant.Chromosome] = struct{}{}
	}

	if err := rdr.Error(); err != nil {
		logging.New("vcfcheck").Warn("vcf parsed with warnings", "path", path, "error", err)
	}

	for chrom := range chroms {
		out.Chromosomes = append(out.Chromosomes, chrom)
	}
	sort.Strings(out.Chromosomes)

	return out, nil
}

// Samples returns the distinct sample names across files, in first-seen order.
// Files without genotype columns contribute their base name, which is how the
// matrix generator names them.
func Samples(files []File) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, f := range files {
		if len(f.Samples) == 0 {
			base := filepath.Base(f.Path)
			base = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".vcf")
			add(base)
			continue
		}
		for _, s := range f.Samples {
			add(s)
		}
	}

	return out
}

// Paths lists the file paths of an inventory.
func Paths(files []File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}

	return out
}
