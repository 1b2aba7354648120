package ensemblefit

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType attempts to detect the data type of a stream by checking
// against a set of known data types. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(r io.Reader) (DataType, error) {
	buff := make([]byte, 6)
	n, err := io.ReadFull(r, buff)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// Short (or empty) files are never compressed in a format we know.
		err = nil
	}
	if err != nil {
		return DataTypeInvalid, err
	}

Outer:
	for dt, sig := range byteCodeSigs {
		if len(sig) > n {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReadCloserFromFile sniffs the compression of f and returns a
// reader over the decompressed contents. Closing the returned reader closes f.
func MaybeDecompressReadCloserFromFile(f *os.File) (io.ReadCloser, error) {
	dt, err := DetectDataType(f)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// Rewind before handing the file to a decompressor, which will want to
	// read the magic bytes itself.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, pfx.Err(err)
	}

	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, pfx.Err(err)
		}
		return &stackedReadCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
	case DataTypeZip:
		return &stackedReadCloser{Reader: zipstream.NewReader(f), closers: []io.Closer{f}}, nil
	case DataTypeBZip2:
		return &stackedReadCloser{Reader: bzip2.NewReader(f), closers: []io.Closer{f}}, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(f, 0)
		if err != nil {
			return nil, pfx.Err(err)
		}
		return &stackedReadCloser{Reader: reader, closers: []io.Closer{f}}, nil
	case DataTypeZ:
		// Unix compress streams use variable-width LZW codes up to 16 bits,
		// which neither compress/lzw nor compress/zlib can decode.
		return nil, fmt.Errorf("%s: unix compress (.Z) input is not supported; recompress it with gzip", f.Name())
	}

	// No data type detected. For now, we assume this is uncompressed.
	return f, nil
}

// stackedReadCloser "upgrades" readers that don't need to be closed, and
// closes the underlying file along with any decompressor.
type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (c *stackedReadCloser) Close() error {
	var first error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
