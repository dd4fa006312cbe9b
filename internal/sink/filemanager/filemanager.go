// Package filemanager implements §6's file-manager interface: bounded
// concurrently-open file descriptors, with least-recently-used handles
// transparently reopened on next use rather than erroring when the cap
// is hit. The lazy open-on-demand/reopen pattern is grounded on
// goDB/storage/gpfile's GPFile ("if g.file == nil { g.open(...) }"
// before every read/write), generalized here across many paths sharing
// one descriptor budget instead of one file per GPFile value. The
// per-handle write buffer is drawn from and returned to a
// fako1024/gotools/concurrency memory pool, the same
// acquire-on-open/release-on-close discipline gpfile.go itself uses for
// its uncompData/blockData scratch buffers via the package-level
// bufPool.
package filemanager

import (
	"container/list"
	"fmt"
	"os"
	"sync"

	"github.com/fako1024/gotools/concurrency"
)

// Handle identifies an open (or transiently closed, pending reopen) file
// across calls. It remains valid from Open until the matching Close.
type Handle int

const writeBufferSize = 8192 // mirrors gpfile's bufferPreallocSize

type entry struct {
	path  string
	flags int
	perm  os.FileMode

	file *os.File
	buf  []byte        // pooled write buffer, len == buffered byte count
	elem *list.Element // position in the LRU list; nil while closed
}

// Manager caps the number of simultaneously open *os.File descriptors at
// maxOpen. Handles beyond that cap are not refused: the least-recently-
// used open handle is flushed and closed to make room, and transparently
// reopened (at its last write position) the next time it's used.
type Manager struct {
	mu      sync.Mutex
	maxOpen int
	pool    concurrency.MemPoolGCable
	lru     *list.List // front = most recently used
	entries map[Handle]*entry
	next    Handle
}

// New creates a Manager that keeps at most maxOpen descriptors open at
// once. maxOpen <= 0 means unbounded (no eviction); the backing memory
// pool is sized the same way, mirroring buffer.go's
// concurrency.NewMemPool(nBuffers) for a bounded budget.
func New(maxOpen int) *Manager {
	var pool concurrency.MemPoolGCable
	if maxOpen > 0 {
		pool = concurrency.NewMemPool(maxOpen)
	} else {
		pool = concurrency.NewMemPoolNoLimit()
	}
	return &Manager{
		maxOpen: maxOpen,
		pool:    pool,
		lru:     list.New(),
		entries: make(map[Handle]*entry),
	}
}

// Open registers path for later writes and returns its handle. The
// underlying descriptor is opened immediately unless doing so would
// exceed maxOpen, in which case the least-recently-used handle is
// evicted first.
func (m *Manager) Open(path string, flags int, perm os.FileMode) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.next
	m.next++

	e := &entry{path: path, flags: flags, perm: perm}
	m.entries[h] = e

	if err := m.openLocked(h, e); err != nil {
		delete(m.entries, h)
		return 0, err
	}
	return h, nil
}

// Write appends p to the file identified by h, reopening its descriptor
// first if it was evicted. Writes are buffered in memory until Flush or
// an eviction forces them out.
func (m *Manager) Write(h Handle, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[h]
	if !ok {
		return 0, fmt.Errorf("filemanager: unknown handle %d", h)
	}
	if e.file == nil {
		// continue after what was already written instead of truncating
		e.flags = e.flags&^os.O_TRUNC | os.O_APPEND
		if err := m.openLocked(h, e); err != nil {
			return 0, err
		}
	} else {
		m.touchLocked(e)
	}
	e.buf = append(e.buf, p...)
	if len(e.buf) >= writeBufferSize {
		if err := flushEntry(e); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// WriteString is the string-argument form of Write.
func (m *Manager) WriteString(h Handle, s string) (int, error) {
	return m.Write(h, []byte(s))
}

// Flush pushes h's buffered writes to its descriptor (§6 "fflush").
// Flushing does not close the descriptor or affect its LRU position.
func (m *Manager) Flush(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[h]
	if !ok {
		return fmt.Errorf("filemanager: unknown handle %d", h)
	}
	if e.file == nil {
		return nil
	}
	return flushEntry(e)
}

// Close flushes and closes h's descriptor and forgets the handle
// entirely; a later Write(h, ...) returns an error.
func (m *Manager) Close(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[h]
	if !ok {
		return fmt.Errorf("filemanager: unknown handle %d", h)
	}
	err := m.closeFileLocked(e)
	delete(m.entries, h)
	return err
}

// CloseAll flushes and closes every open descriptor, in unspecified
// order. Used on shutdown (§7 "Shutdown sequencing").
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for h, e := range m.entries {
		if err := m.closeFileLocked(e); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.entries, h)
	}
	return firstErr
}

// OpenCount returns the number of descriptors currently open (not evicted).
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

func (m *Manager) openLocked(h Handle, e *entry) error {
	if m.maxOpen > 0 {
		for m.lru.Len() >= m.maxOpen {
			if !m.evictOneLocked() {
				break
			}
		}
	}

	f, err := os.OpenFile(e.path, e.flags, e.perm)
	if err != nil {
		return fmt.Errorf("filemanager: open %s: %w", e.path, err)
	}
	e.file = f
	e.buf = m.pool.Get(writeBufferSize)[:0]
	e.elem = m.lru.PushFront(h)
	return nil
}

func flushEntry(e *entry) error {
	if len(e.buf) == 0 {
		return nil
	}
	_, err := e.file.Write(e.buf)
	e.buf = e.buf[:0]
	return err
}

// evictOneLocked closes the least-recently-used open entry's descriptor
// without forgetting the handle, so a later Write transparently reopens
// it (§6 "LRU reopen"). Returns false if nothing is open to evict.
func (m *Manager) evictOneLocked() bool {
	back := m.lru.Back()
	if back == nil {
		return false
	}
	h := back.Value.(Handle)
	e := m.entries[h]
	_ = m.closeFileLocked(e)
	return true
}

func (m *Manager) closeFileLocked(e *entry) error {
	if e.file == nil {
		return nil
	}
	flushErr := flushEntry(e)
	closeErr := e.file.Close()
	if e.elem != nil {
		m.lru.Remove(e.elem)
		e.elem = nil
	}
	m.pool.Put(e.buf)
	e.buf = nil
	e.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (m *Manager) touchLocked(e *entry) {
	if e.elem != nil {
		m.lru.MoveToFront(e.elem)
	}
}
