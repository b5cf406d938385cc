// Package mem provides an in-memory engine.File, used as the backing store
// of tables in tests and for throwaway sessions.
package mem

import (
	"io"
	"os"
	"sync"

	engine "github.com/ynnekF/sqlite-engine"
)

// File is an in-memory implementation of the engine.File interface.
// It is safe for concurrent use by multiple goroutines.
//
// File requires no initialization - just declare and use:
//
//	var f File
//	f.WriteAt([]byte("hello"), 0)
//
// Unlike an *os.File, closing a File keeps its content so that a table can
// be loaded from it again after Reopen.
type File struct {
	rw     sync.RWMutex
	data   []byte
	closed bool

	readErr  error
	writeErr error
	syncs    int
}

var _ engine.File = new(File)

// Close marks the file closed. Reads and writes fail with os.ErrClosed
// until Reopen is called.
func (file *File) Close() error {
	file.rw.Lock()
	defer file.rw.Unlock()
	if file.closed {
		return os.ErrClosed
	}
	file.closed = true
	return nil
}

// Reopen makes a closed file usable again, with its content intact.
func (file *File) Reopen() {
	file.rw.Lock()
	file.closed = false
	file.rw.Unlock()
}

// FailReads makes every subsequent ReadAt return err. Pass nil to heal.
func (file *File) FailReads(err error) {
	file.rw.Lock()
	file.readErr = err
	file.rw.Unlock()
}

// FailWrites makes every subsequent WriteAt, Truncate and Sync return err.
// Pass nil to heal.
func (file *File) FailWrites(err error) {
	file.rw.Lock()
	file.writeErr = err
	file.rw.Unlock()
}

// Size returns the current size of the file in bytes.
func (file *File) Size() int64 {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return int64(len(file.data))
}

// Syncs returns how many times Sync succeeded.
func (file *File) Syncs() int {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return file.syncs
}

// Bytes returns a copy of the file content.
func (file *File) Bytes() []byte {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return append([]byte(nil), file.data...)
}

// ReadFrom reads data from r until EOF and replaces the entire file content.
// It implements io.ReaderFrom interface.
func (file *File) ReadFrom(r io.Reader) (n int64, err error) {
	data, err := io.ReadAll(r)
	file.rw.Lock()
	defer file.rw.Unlock()
	file.data = data
	return int64(len(data)), err
}

// WriteTo writes the entire file content to w.
// It implements io.WriterTo interface.
func (file *File) WriteTo(w io.Writer) (n int64, err error) {
	file.rw.RLock()
	defer file.rw.RUnlock()
	c, err := w.Write(file.data)
	return int64(c), err
}

// WriteAt writes len(p) bytes from p to the file starting at byte offset off.
// It implements io.WriterAt interface.
//
// If the write position extends beyond the current file size, the file
// is grown and the gap is filled with zero bytes.
func (file *File) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}

	file.rw.Lock()
	defer file.rw.Unlock()
	if err = file.writable(); err != nil {
		return
	}
	if len(p) == 0 {
		return 0, nil
	}
	if end := off + int64(len(p)); end > int64(len(file.data)) {
		file.grow(end)
	}
	return copy(file.data[off:], p), nil
}

// ReadAt reads len(p) bytes into p starting at byte offset off in the file.
// It implements io.ReaderAt interface; a short read returns io.EOF.
func (file *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}

	file.rw.RLock()
	defer file.rw.RUnlock()
	if file.closed {
		return 0, os.ErrClosed
	}
	if file.readErr != nil {
		return 0, file.readErr
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= int64(len(file.data)) {
		return 0, io.EOF
	}
	n = copy(p, file.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

// Truncate changes the size of the file.
//
// If the new size is larger, the new space is filled with zero bytes.
func (file *File) Truncate(size int64) error {
	if size < 0 {
		return io.ErrUnexpectedEOF
	}

	file.rw.Lock()
	defer file.rw.Unlock()
	if err := file.writable(); err != nil {
		return err
	}
	if size > int64(len(file.data)) {
		file.grow(size)
	} else {
		file.data = file.data[:size]
	}
	return nil
}

// Sync counts the call; the data is already "stable".
func (file *File) Sync() error {
	file.rw.Lock()
	defer file.rw.Unlock()
	if err := file.writable(); err != nil {
		return err
	}
	file.syncs++
	return nil
}

func (file *File) writable() error {
	if file.closed {
		return os.ErrClosed
	}
	return file.writeErr
}

func (file *File) grow(size int64) {
	if size <= int64(cap(file.data)) {
		n := len(file.data)
		file.data = file.data[:size]
		clear(file.data[n:])
		return
	}
	data := make([]byte, size, max(size, 2*int64(cap(file.data))))
	copy(data, file.data)
	file.data = data
}
