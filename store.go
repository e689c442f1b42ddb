package netident

import "context"

// Store is the flat key-value storage behind Cache.
//
// Names passed to a Store are already filesystem-safe. Read returns
// ErrEntryNotFound for missing records and Delete treats missing records as
// success. Each Write is a full overwrite of one record.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}
