// Package cloudwriter uploads export files to object storage.
package cloudwriter

// CloudWriter buffers an object; the upload happens on Close.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

type CloudWriterFactory interface {
	NewWriter(bucket, objectPath string) (CloudWriter, error)
}
