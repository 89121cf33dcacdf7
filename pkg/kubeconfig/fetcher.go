package kubeconfig

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quickstack/kubecfn/pkg/log"
)

// ObjectGetter is the object-store surface the fetcher depends on.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Decrypter is the envelope-decryption surface the fetcher depends on.
type Decrypter interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Fetcher retrieves and decrypts a kubeconfig, writing the plaintext to a
// local path for the external tool to pick up.
type Fetcher struct {
	tracer    trace.Tracer
	objects   ObjectGetter
	decrypter Decrypter
}

// NewFetcher creates a [Fetcher] backed by real service clients.
func NewFetcher(cfg aws.Config) *Fetcher {
	return NewFetcherWithClients(s3.NewFromConfig(cfg), kms.NewFromConfig(cfg))
}

// NewFetcherWithClients creates a [Fetcher] with explicit clients. Tests use
// this to substitute fakes.
func NewFetcherWithClients(objects ObjectGetter, decrypter Decrypter) *Fetcher {
	return &Fetcher{
		tracer:    otel.Tracer("kubeconfig"),
		objects:   objects,
		decrypter: decrypter,
	}
}

// Fetch downloads the encrypted blob, decrypts it with the source's
// encryption context, and writes the UTF-8 plaintext to destPath.
func (f *Fetcher) Fetch(ctx context.Context, src Source, destPath string) error {
	ctx, span := f.tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("bucket", src.Bucket),
		attribute.String("key", src.Key),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(
		slog.String("bucket", src.Bucket),
		slog.String("key", src.Key),
	)

	obj, err := f.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
	if err != nil {
		return fmt.Errorf("fetch kubeconfig from s3://%s/%s: %w", src.Bucket, src.Key, err)
	}
	defer obj.Body.Close() //nolint:errcheck // Read side only.

	ciphertext, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("read kubeconfig object body: %w", err)
	}

	plaintext, err := f.decrypter.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    ciphertext,
		EncryptionContext: src.EncryptionContext,
	})
	if err != nil {
		return fmt.Errorf("decrypt kubeconfig: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o700); err != nil {
		return fmt.Errorf("create kubeconfig directory: %w", err)
	}
	if err := os.WriteFile(destPath, plaintext.Plaintext, 0o600); err != nil {
		return fmt.Errorf("write kubeconfig: %w", err)
	}

	logger.DebugContext(ctx, "kubeconfig written", slog.String("path", destPath))

	return nil
}
