// Package pagefile is the Storage Manager: it exposes a flat file on disk as
// a sequence of fixed-size pages. It is the layer the buffer pool sits on
// top of, and is specified only to the extent the buffer pool depends on it.
package pagefile

import (
	"io"
	"os"
	"sync"

	"gitlab.com/kleefisch/pagepool/src/bpderr"
)

// PageSize is the fixed size of every page, in bytes. All I/O is
// page-aligned and page-sized; there is no support for variable page sizes.
const PageSize = 4096

// PageID identifies a page within a PageFile. NoPage denotes "no page" /
// "empty frame" and is never a valid resident page id.
type PageID = int

// NoPage is the sentinel PageID meaning "absent".
const NoPage PageID = -1

// PageFile is an open, page-aligned byte stream. The zero value is not
// usable; construct one with Create+Open or Open.
type PageFile struct {
	name       string
	file       *os.File
	totalPages int
	curPagePos int
	mu         sync.Mutex
}

// Create makes (or truncates) name to contain exactly one zero-filled page.
// It does not leave the file open; call Open afterwards to get a handle.
func Create(name string) error {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return bpderr.New("create "+name, bpderr.WriteFailed, err)
	}
	defer f.Close()

	zero := make([]byte, PageSize)
	if _, err := f.Write(zero); err != nil {
		return bpderr.New("create "+name, bpderr.WriteFailed, err)
	}
	return nil
}

// Open opens an existing page file. The file must already exist and its
// length must be an exact multiple of PageSize; the total page count is
// derived from that length and the sequential cursor starts at page 0.
func Open(name string) (*PageFile, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bpderr.New("open "+name, bpderr.FileNotFound, err)
		}
		return nil, bpderr.New("open "+name, bpderr.WriteFailed, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, bpderr.New("open "+name, bpderr.WriteFailed, err)
	}
	if info.Size()%PageSize != 0 {
		f.Close()
		return nil, bpderr.New("open "+name, bpderr.WriteFailed, nil)
	}

	return &PageFile{
		name:       name,
		file:       f,
		totalPages: int(info.Size() / PageSize),
		curPagePos: 0,
	}, nil
}

// Close releases the OS file handle. Safe to call at most once per Open.
func (pf *PageFile) Close() error {
	if pf == nil || pf.file == nil {
		return bpderr.New("close", bpderr.FileHandleNotInit, nil)
	}
	err := pf.file.Close()
	pf.file = nil
	if err != nil {
		return bpderr.New("close "+pf.name, bpderr.WriteFailed, err)
	}
	return nil
}

// Destroy removes the backing file. If pf is non-nil (the caller still has
// it open), Destroy closes it first, since some platforms forbid unlinking
// an open file. There is no process-wide registry of "the last opened file";
// callers that want the auto-close behavior pass their own handle.
func Destroy(name string, pf *PageFile) error {
	if pf != nil && pf.file != nil {
		if err := pf.Close(); err != nil {
			return err
		}
	}
	if err := os.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return bpderr.New("destroy "+name, bpderr.FileNotFound, err)
		}
		return bpderr.New("destroy "+name, bpderr.WriteFailed, err)
	}
	return nil
}

// TotalPages reports how many pages the file currently holds.
func (pf *PageFile) TotalPages() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.totalPages
}

// BlockPos returns the current sequential-read cursor.
func (pf *PageFile) BlockPos() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.curPagePos
}

// ReadPage copies page i (0-based) into buf, which must be at least
// PageSize bytes. i must be within [0, TotalPages()).
func (pf *PageFile) ReadPage(i PageID, buf []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.readPageLocked(i, buf)
}

func (pf *PageFile) readPageLocked(i PageID, buf []byte) error {
	if pf.file == nil {
		return bpderr.New("read page", bpderr.FileHandleNotInit, nil)
	}
	if i < 0 || i >= pf.totalPages {
		return bpderr.New("read page", bpderr.ReadNonExistingPage, nil)
	}
	n, err := pf.file.ReadAt(buf[:PageSize], int64(i)*PageSize)
	if err != nil && err != io.EOF {
		return bpderr.New("read page", bpderr.WriteFailed, err)
	}
	if n != PageSize {
		return bpderr.New("read page", bpderr.WriteFailed, io.ErrUnexpectedEOF)
	}
	return nil
}

// WritePage copies buf (which must be exactly PageSize bytes) into page i,
// extending the file first if i is beyond the current end, and flushes to
// the OS before returning.
func (pf *PageFile) WritePage(i PageID, buf []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.file == nil {
		return bpderr.New("write page", bpderr.FileHandleNotInit, nil)
	}
	if i < 0 {
		return bpderr.New("write page", bpderr.ReadNonExistingPage, nil)
	}
	if i >= pf.totalPages {
		if err := pf.ensureCapacityLocked(i + 1); err != nil {
			return err
		}
	}
	n, err := pf.file.WriteAt(buf[:PageSize], int64(i)*PageSize)
	if err != nil {
		return bpderr.New("write page", bpderr.WriteFailed, err)
	}
	if n != PageSize {
		return bpderr.New("write page", bpderr.WriteFailed, io.ErrShortWrite)
	}
	if err := pf.file.Sync(); err != nil {
		return bpderr.New("write page", bpderr.WriteFailed, err)
	}
	return nil
}

// AppendEmptyPage appends one zero-filled page and advances the cursor to it.
func (pf *PageFile) AppendEmptyPage() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if err := pf.appendEmptyLocked(); err != nil {
		return err
	}
	pf.curPagePos = pf.totalPages - 1
	return nil
}

func (pf *PageFile) appendEmptyLocked() error {
	if pf.file == nil {
		return bpderr.New("append page", bpderr.FileHandleNotInit, nil)
	}
	zero := make([]byte, PageSize)
	n, err := pf.file.WriteAt(zero, int64(pf.totalPages)*PageSize)
	if err != nil {
		return bpderr.New("append page", bpderr.WriteFailed, err)
	}
	if n != PageSize {
		return bpderr.New("append page", bpderr.WriteFailed, io.ErrShortWrite)
	}
	pf.totalPages++
	return nil
}

// EnsureCapacity appends zero pages until TotalPages() >= n.
func (pf *PageFile) EnsureCapacity(n int) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.ensureCapacityLocked(n)
}

func (pf *PageFile) ensureCapacityLocked(n int) error {
	for pf.totalPages < n {
		if err := pf.appendEmptyLocked(); err != nil {
			return err
		}
	}
	return nil
}

// ReadFirst reads page 0 and resets the cursor to it.
func (pf *PageFile) ReadFirst(buf []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if err := pf.readPageLocked(0, buf); err != nil {
		return err
	}
	pf.curPagePos = 0
	return nil
}

// ReadLast reads the final page and sets the cursor to it.
func (pf *PageFile) ReadLast(buf []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	last := pf.totalPages - 1
	if err := pf.readPageLocked(last, buf); err != nil {
		return err
	}
	pf.curPagePos = last
	return nil
}

// ReadCurrent re-reads the page at the cursor.
func (pf *PageFile) ReadCurrent(buf []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.readPageLocked(pf.curPagePos, buf)
}

// ReadNext advances the cursor by one page and reads it. Fails at the last
// page with ReadNonExistingPage.
func (pf *PageFile) ReadNext(buf []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	next := pf.curPagePos + 1
	if err := pf.readPageLocked(next, buf); err != nil {
		return err
	}
	pf.curPagePos = next
	return nil
}

// ReadPrev rewinds the cursor by one page and reads it. Fails at the first
// page with ReadNonExistingPage.
func (pf *PageFile) ReadPrev(buf []byte) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	prev := pf.curPagePos - 1
	if err := pf.readPageLocked(prev, buf); err != nil {
		return err
	}
	pf.curPagePos = prev
	return nil
}
