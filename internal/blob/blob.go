// Package blob provides durable byte stores that hold the serialized
// application state. Every engine has the same contract: Read returns the last
// written bytes (nil when nothing was ever written) and Write replaces them.
package blob

import "context"

type Store interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Pinger is implemented by stores backed by a network or database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}
