// Package docstore keeps the original resume files. The extracted text in
// the database stays authoritative for scoring; stored bytes exist so the
// original upload can be fetched back later.
package docstore

import "context"

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
