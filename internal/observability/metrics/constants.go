// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Namespace prefixes every metric name.
const Namespace = "jobapply"

// Label values for Drive request outcomes that are not error codes.
const (
	// CodeOK marks a Drive call that succeeded.
	CodeOK = "ok"
)

// Bucket layouts.
const (
	// BucketStart1ms is the first tick duration bucket in seconds.
	BucketStart1ms = 0.001
	// BucketStart256B is the first backup size bucket in bytes.
	BucketStart256B = 256
	// BucketFactor2 doubles each bucket.
	BucketFactor2 = 2
	// BucketFactor4 quadruples each bucket.
	BucketFactor4 = 4
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount16 defines 16 exponential buckets.
	BucketCount16 = 16
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second
