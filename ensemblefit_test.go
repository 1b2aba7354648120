package ensemblefit

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const catalogueHead = "Type\tS1\tS2\n" +
	"A[C>A]A\t1\t0\n" +
	"A[C>A]C\t4\t2\n" +
	"A[C>A]G\t0\t9\n"

func TestDetermineDelimiter(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want rune
	}{
		{"tab", catalogueHead, '\t'},
		{"comma", strings.ReplaceAll(catalogueHead, "\t", ","), ','},
		{"single column", "Samples\nS1\nS2\n", '\t'},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetermineDelimiter(strings.NewReader(tc.in)); got != tc.want {
				t.Errorf("DetermineDelimiter = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDetectDataType(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write([]byte(catalogueHead))
	w.Close()

	for _, tc := range []struct {
		name string
		in   []byte
		want DataType
	}{
		{"plain", []byte(catalogueHead), DataTypeNoCompression},
		{"gzip", gz.Bytes(), DataTypeGzip},
		{"short", []byte("a"), DataTypeNoCompression},
		{"bzip2", []byte("BZh91AY&SY"), DataTypeBZip2},
		{"unix compress", []byte{0x1f, 0x9d, 0x90, 'T', 'y'}, DataTypeZ},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectDataType(bytes.NewReader(tc.in))
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("DetectDataType = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReadDelimitedGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.txt.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := gzip.NewWriter(f)
	w.Write([]byte(catalogueHead))
	w.Close()
	f.Close()

	header, rows, err := ReadDelimited(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Type", "S1", "S2"}, header); diff != "" {
		t.Error(diff)
	}
	if len(rows) != 3 || rows[2][0] != "A[C>A]G" || rows[2][2] != "9" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestUnixCompressIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.txt.Z")
	if err := os.WriteFile(path, []byte{0x1f, 0x9d, 0x90, 'T', 'y', 'p', 'e'}, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenInput(path)
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Errorf("OpenInput = %v, want an unsupported format error", err)
	}
}

func TestReadDelimitedRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.txt")
	if err := os.WriteFile(path, []byte("Samples\tSBS1\nS1\t1\t2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := ReadDelimited(path); err == nil {
		t.Error("expected an error for a row wider than its header")
	}
}

func TestExpandHome(t *testing.T) {
	for _, p := range []string{"/abs/path", "gs://bucket/x", "relative"} {
		got, err := ExpandHome(p)
		if err != nil || got != p {
			t.Errorf("ExpandHome(%q) = %q, %v", p, got, err)
		}
	}

	got, err := ExpandHome("~/catalogue.txt")
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(got, "~") || filepath.Base(got) != "catalogue.txt" {
		t.Errorf("ExpandHome = %q", got)
	}
}
