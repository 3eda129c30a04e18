// Package compress is the boundary to the remote lossy-compression service.
//
// A Compressor takes whole-file bytes and a credential and returns the
// compressed bytes. Failures are classified with the Err* sentinels so the
// caller can decide between rotating credentials, skipping the file, or
// halting the run.
package compress

import "context"

// Compressor compresses one image with one credential.
type Compressor interface {
	Compress(ctx context.Context, data []byte, credential string) ([]byte, error)
}

// CompressorFunc adapts a function to the Compressor interface.
type CompressorFunc func(ctx context.Context, data []byte, credential string) ([]byte, error)

// Compress calls f(ctx, data, credential).
func (f CompressorFunc) Compress(ctx context.Context, data []byte, credential string) ([]byte, error) {
	return f(ctx, data, credential)
}
