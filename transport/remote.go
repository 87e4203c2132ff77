package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BytesSource adapts an already-fetched byte slice to targets.Source.
// The no-buffering invariant (spec.md §4.1 invariant 1) binds the
// targets package's own Process loop, which never holds more than one
// BufSize scratch buffer at a time; it does not require the transport
// layer fetching the bytes over the network to avoid an HTTP client's
// own internal buffering. A director manifest is small (single-target
// metadata), so one GetObject/request-body read fits comfortably in
// memory here. Also used directly by the server package to wrap a
// manifest posted inline in a /validate request body.
type BytesSource struct {
	data []byte
	pos  int
}

func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{data: data}
}

func (s *BytesSource) Read(buf []byte) error {
	if s.pos+len(buf) > len(s.data) {
		return io.ErrUnexpectedEOF
	}
	copy(buf, s.data[s.pos:s.pos+len(buf)])
	s.pos += len(buf)
	return nil
}

func (s *BytesSource) Peek() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, io.ErrUnexpectedEOF
	}
	return s.data[s.pos], nil
}

// S3Source fetches a director manifest object from Amazon S3, grounded
// on the teacher's vendored aws-sdk-go-v2 usage for remote artifact
// retrieval.
func S3Source(ctx context.Context, client *s3.Client, bucket, key string) (*BytesSource, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: s3 GetObject %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("transport: s3 read body: %w", err)
	}
	return NewBytesSource(buf.Bytes()), nil
}

// AzureBlobSource fetches a director manifest blob from Azure Blob
// Storage.
func AzureBlobSource(ctx context.Context, client *blob.Client) (*BytesSource, error) {
	out, err := client.DownloadStream(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: azure blob download: %w", err)
	}
	defer out.Body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("transport: azure blob read body: %w", err)
	}
	return NewBytesSource(buf.Bytes()), nil
}
