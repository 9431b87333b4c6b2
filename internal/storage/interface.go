package storage

import "errors"

// ErrNotFound is returned by Retrieve when no object exists under the name
var ErrNotFound = errors.New("object not found")

// StorageInterface defines the contract for snapshot storage operations
type StorageInterface interface {
	Store(filename string, data []byte) error
	Retrieve(filename string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(filename string) error
}
