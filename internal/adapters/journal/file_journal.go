package journal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

const recordHeaderLen = 12

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("journal closed")

// FileJournal stores delivered events in events.log and the commit
// watermark in events.meta. Once every appended entry is committed the log
// is truncated, so its size tracks the dispatch backlog.
type FileJournal struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.JournalEntryID
	committed ports.JournalEntryID
	sizeBytes int64
	// lastLen is the size of the newest record while it can be discarded.
	lastLen int64
	closed  bool
}

func NewFileJournal(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "events.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	j := &FileJournal{
		path:     path,
		metaPath: filepath.Join(dir, "events.meta"),
		file:     f,
		writer:   bufio.NewWriterSize(f, 64<<10),
	}
	if err := j.bootstrap(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) bootstrap() error {
	if err := j.scanExisting(); err != nil {
		return err
	}
	if err := j.loadCommitted(); err != nil {
		return err
	}
	if j.nextID < j.committed {
		j.nextID = j.committed
	}
	_, err := j.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting finds the last complete record and cuts off a torn tail.
func (j *FileJournal) scanExisting() error {
	stat, err := j.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset int64
		lastID ports.JournalEntryID
	)

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan header: %w", err)
		}
		id := ports.JournalEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := binary.BigEndian.Uint32(hdr[8:12])

		if length > 0 {
			if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					break
				}
				return fmt.Errorf("journal scan body: %w", err)
			}
		}
		offset += recordHeaderLen + int64(length)
		lastID = id
	}

	if err := j.file.Truncate(offset); err != nil {
		return err
	}
	j.sizeBytes = offset
	j.nextID = lastID
	return nil
}

func (j *FileJournal) loadCommitted() error {
	data, err := os.ReadFile(j.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("journal meta parse: %w", err)
	}
	j.committed = ports.JournalEntryID(u)
	return nil
}

func (j *FileJournal) Append(ev *domain.Event) (ports.JournalEntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrClosed
	}

	id := j.nextID + 1

	b, err := json.Marshal(ev)
	if err != nil {
		return 0, err
	}

	// entry format: [8 bytes id][4 bytes len][len bytes json]
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := j.writer.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := j.writer.Write(b); err != nil {
		return 0, err
	}

	j.nextID = id
	j.lastLen = int64(len(b) + len(hdr))
	j.sizeBytes += j.lastLen
	return id, nil
}

// Discard cuts the newest record off the log. Only an uncommitted entry
// appended by this process can be discarded, and only once.
func (j *FileJournal) Discard(id ports.JournalEntryID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if id == 0 || id != j.nextID || id <= j.committed || j.lastLen == 0 {
		return fmt.Errorf("journal discard %d: not the newest uncommitted entry", id)
	}

	if err := j.writer.Flush(); err != nil {
		return err
	}
	size := j.sizeBytes - j.lastLen
	if err := j.file.Truncate(size); err != nil {
		return fmt.Errorf("journal discard: %w", err)
	}
	j.sizeBytes = size
	j.nextID--
	j.lastLen = 0
	return nil
}

func (j *FileJournal) Iterate(from ports.JournalEntryID, fn func(id ports.JournalEntryID, ev *domain.Event) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}

	if err := j.writer.Flush(); err != nil {
		return err
	}

	f, err := os.Open(j.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("journal iterate header: %w", err)
		}
		id := ports.JournalEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		l := binary.BigEndian.Uint32(hdr[8:12])

		b := make([]byte, l)
		if _, err := io.ReadFull(r, b); err != nil {
			return fmt.Errorf("corrupt journal: %w", err)
		}
		if id < from {
			continue
		}

		var ev domain.Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", id, err)
		}
		if err := fn(id, &ev); err != nil {
			return err
		}
	}
}

func (j *FileJournal) Commit(upto ports.JournalEntryID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if upto > j.committed {
		j.committed = upto
	}
	if err := j.persistMetaLocked(); err != nil {
		return err
	}
	if j.committed >= j.nextID && j.sizeBytes > 0 {
		return j.truncateLocked()
	}
	return nil
}

func (j *FileJournal) truncateLocked() error {
	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Truncate(0); err != nil {
		return fmt.Errorf("journal truncate: %w", err)
	}
	j.sizeBytes = 0
	j.lastLen = 0
	return nil
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		OldestUncommitted: j.committed + 1,
		LatestAppended:    j.nextID,
		SizeBytes:         j.sizeBytes,
	}
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return errors.Join(j.writer.Flush(), j.file.Close())
}

func (j *FileJournal) persistMetaLocked() error {
	data := []byte(fmt.Sprintf("%d\n", j.committed))
	return os.WriteFile(j.metaPath, data, 0o644)
}

var _ ports.Journal = (*FileJournal)(nil)
