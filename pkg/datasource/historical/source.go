package historical

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/exp/mmap"
)

var (
	ErrEof       = errors.New("EOF")
	ErrNotOpen   = errors.New("data source is not open")
	ErrEntrySize = errors.New("invalid entry size")
)

// Source reads fixed size records of T from a memory mapped file. T must be
// a plain struct without padding or pointers.
type Source[T any] struct {
	dataSourceName string
	entrySize      int64
	reader         *mmap.ReaderAt
	bufferPool     *sync.Pool
}

func NewSource[T any](dataSourceName string) *Source[T] {
	entrySize := int64(unsafe.Sizeof(*new(T)))
	return &Source[T]{
		dataSourceName: dataSourceName,
		entrySize:      entrySize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buffer := make([]byte, entrySize)
				return &buffer
			},
		},
	}
}

func (s *Source[T]) Open() error {
	if s.entrySize == 0 {
		return fmt.Errorf("size of entry is zero: %w", ErrEntrySize)
	}
	reader, err := mmap.Open(s.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open data source %q: %w", s.dataSourceName, err)
	}
	if int64(reader.Len())%s.entrySize != 0 {
		_ = reader.Close()
		return fmt.Errorf("data source %q size %d is not a multiple of %d: %w", s.dataSourceName, reader.Len(), s.entrySize, ErrEntrySize)
	}
	s.reader = reader
	return nil
}

func (s *Source[T]) Close() {
	if s.reader != nil {
		_ = s.reader.Close()
		s.reader = nil
	}
}

func (s *Source[T]) Read(index int64, data *T) error {
	if s.reader == nil {
		return ErrNotOpen
	}

	buffer := s.bufferPool.Get().(*[]byte)
	defer s.bufferPool.Put(buffer)

	n, err := s.reader.ReadAt(*buffer, index*s.entrySize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read entry %d: %w", index, err)
	}
	if n < len(*buffer) {
		return ErrEof
	}

	*data = *(*T)(unsafe.Pointer(&(*buffer)[0])) // #nosec G103
	return nil
}

func (s *Source[T]) EntryCount() (int64, error) {
	if s.reader == nil {
		return 0, ErrNotOpen
	}
	return int64(s.reader.Len()) / s.entrySize, nil
}

// WriteEntries stores entries in the layout Source reads back.
func WriteEntries[T any](dataSourceName string, entries []T) error {
	file, err := os.Create(dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to create data source %q: %w", dataSourceName, err)
	}

	entrySize := int(unsafe.Sizeof(*new(T)))
	for idx := range entries {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&entries[idx])), entrySize) // #nosec G103
		if _, err := file.Write(raw); err != nil {
			_ = file.Close()
			return fmt.Errorf("unable to write entry %d: %w", idx, err)
		}
	}
	return file.Close()
}
