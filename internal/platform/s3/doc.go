// Package s3 stores deployment run reports in S3-compatible object storage
// (Hetzner Object Storage or any other S3 endpoint).
package s3
