// Package cloud moves job inputs and results to and from Google Cloud Storage
// and records job status in BigQuery.
package cloud

import (
	"fmt"
	"path"
	"strings"
)

// Scheme prefixes every Google Storage path.
const Scheme = "gs://"

// IsGS reports whether p names a Google Storage object or prefix.
func IsGS(p string) bool {
	return strings.HasPrefix(p, Scheme)
}

// SplitPath splits gs://bucket/object into its bucket and object name. The
// object may be empty when p names a whole bucket.
func SplitPath(p string) (bucket, object string, err error) {
	if !IsGS(p) {
		return "", "", fmt.Errorf("%s is not a %s path", p, Scheme)
	}

	parts := strings.SplitN(strings.TrimPrefix(p, Scheme), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("%s has no bucket", p)
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}

	return parts[0], parts[1], nil
}

// Join appends slash-separated elements to a gs:// prefix.
func Join(prefix string, elem ...string) string {
	bucket, object, err := SplitPath(prefix)
	if err != nil {
		return path.Join(append([]string{prefix}, elem...)...)
	}

	return Scheme + bucket + "/" + strings.TrimPrefix(path.Join(append([]string{object}, elem...)...), "/")
}
