package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

var (
	// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
	ErrReadBytesNotSupported = errors.New("confloader: ReadBytes not supported by map provider, use Read() instead")

	// ErrReadNotSupported is returned when Read is called on a bytes provider.
	ErrReadNotSupported = errors.New("confloader: Read not supported by bytes provider, use a parser")
)

// mapProvider is a koanf provider over a map whose keys may be dotted
// paths such as "backup.dir".
type mapProvider map[string]any

// ReadBytes returns an error as map provider doesn't support byte serialization.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the map with dotted keys expanded into nested maps.
func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}

// bytesProvider is a koanf provider over an in-memory document.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b bytesProvider) Read() (map[string]any, error) {
	return nil, ErrReadNotSupported
}
