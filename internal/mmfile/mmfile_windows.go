//go:build windows

package mmfile

import (
	"fmt"
	"io"
	"os"
)

// Map reads the file at path into memory.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}

// MapFile reads the rest of an open file into memory.
func MapFile(f *os.File) ([]byte, func() error, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}

// Anonymous allocates size zeroed bytes.
func Anonymous(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid anonymous size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
