package kubeconfig

import (
	"errors"
	"fmt"
	"strings"
)

// EncryptionContextKey is the fixed name under which the caller-supplied
// context value is presented to the decryption service.
const EncryptionContextKey = "QSContext"

// ErrInvalidPath is returned when a config path is not a valid s3:// URI.
var ErrInvalidPath = errors.New("invalid kubeconfig path")

// Source identifies the encrypted kubeconfig blob and its decryption context.
type Source struct {
	Bucket            string
	Key               string
	EncryptionContext map[string]string
}

// ParseSource validates a config URI of the form s3://bucket/path/to/config
// and pairs it with the decryption context value. Any other scheme or a
// missing bucket or key is rejected before any mutating action happens.
func ParseSource(uri, kmsContext string) (Source, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Source{}, fmt.Errorf("%w: %q must be in the format s3://bucket-name/path/to/config", ErrInvalidPath, uri)
	}

	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return Source{}, fmt.Errorf("%w: %q must be in the format s3://bucket-name/path/to/config", ErrInvalidPath, uri)
	}

	return Source{
		Bucket:            bucket,
		Key:               key,
		EncryptionContext: map[string]string{EncryptionContextKey: kmsContext},
	}, nil
}
