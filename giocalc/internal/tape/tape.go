// Package tape keeps the history of completed calculations in a file.
//
// The tape is a journal: records are appended as JSON lines and replayed
// when the store starts. It is never read back into the calculator.
package tape

import (
	"bytes"
	"container/list"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// FileName is the name of the tape file in the data directory.
const FileName = "tape.jsonl"

type Store struct {
	fs      afero.Fs
	dataDir string
	log     *slog.Logger
	now     func() time.Time

	dataFile afero.File
	writer   *json.Encoder

	eventsOut  chan Event
	eventQueue list.List

	eventsIn chan Event
	flushCh  chan struct{}
	quitCh   chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem. The default is the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock sets the time source for new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store that keeps its file in datadir. The file is
// opened and replayed in the background.
func NewStore(datadir string, opts ...Option) *Store {
	s := &Store{
		fs:        afero.NewOsFs(),
		dataDir:   datadir,
		log:       slog.Default(),
		now:       time.Now,
		eventsOut: make(chan Event),
		eventsIn:  make(chan Event, 256),
		flushCh:   make(chan struct{}, 1),
		quitCh:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.wg.Add(1)
	go s.mainLoop()
	return s
}

// Close closes the store and waits for records to be written.
func (s *Store) Close() {
	close(s.quitCh)
	s.wg.Wait()
}

// Events returns the event channel.
// The app reads this channel and shows the records.
func (s *Store) Events() <-chan Event {
	return s.eventsOut
}

// Add appends a record to the tape.
func (s *Store) Add(expr, text string, value float64) {
	r := Record{Expr: expr, Text: text, Value: value, Time: s.now()}
	r.Seal()
	s.enqueueInputEvent(&RecordAdded{Record: r})
}

// Clear empties the tape.
func (s *Store) Clear() {
	s.enqueueInputEvent(&Cleared{})
}

// Persist tells the store to flush data to disk.
func (s *Store) Persist() {
	select {
	case s.flushCh <- struct{}{}:
	default:
	}
}

// enqueueInputEvent delivers an event from the app to mainLoop.
func (s *Store) enqueueInputEvent(ev Event) {
	select {
	case s.eventsIn <- ev:
	case <-s.quitCh:
	}
}

func (s *Store) mainLoop() {
	defer s.wg.Done()

	// Initial replay.
	if err := s.initFile(); err != nil {
		s.enqueueOutputEvent(&IOError{Err: err})
	}

	// Handle events.
	for {
		sendEvChan, sendEv := s.queuedOutputEvent()
		select {
		case sendEvChan <- sendEv:
			s.popOutputEvent()

		case ev := <-s.eventsIn:
			if err := s.writeEvent(ev); err != nil {
				s.enqueueOutputEvent(&IOError{Err: err})
			} else {
				s.enqueueOutputEvent(ev)
			}

		case <-s.flushCh:
			if s.dataFile != nil {
				err := s.dataFile.Sync()
				s.log.Info("Tape file flushed", "err", err)
				if err != nil {
					s.enqueueOutputEvent(&IOError{Err: err})
				}
			}

		case <-s.quitCh:
			if s.dataFile != nil {
				err := s.dataFile.Close()
				s.log.Info("Tape file closed", "err", err)
			}
			return
		}
	}
}

func (s *Store) enqueueOutputEvent(ev Event) {
	s.eventQueue.PushBack(ev)
}

func (s *Store) queuedOutputEvent() (chan Event, Event) {
	first := s.eventQueue.Front()
	if first == nil {
		return nil, nil
	}
	return s.eventsOut, first.Value.(Event)
}

func (s *Store) popOutputEvent() {
	s.eventQueue.Remove(s.eventQueue.Front())
}

func (s *Store) writeEvent(ev Event) error {
	if err := s.initFile(); err != nil {
		return err
	}
	s.log.Debug("Tape event", "type", ev.evType())
	switch ev := ev.(type) {
	case *RecordAdded:
		return s.writer.Encode(&ev.Record)
	case *Cleared:
		if err := s.dataFile.Truncate(0); err != nil {
			return fmt.Errorf("can't clear tape: %w", err)
		}
		_, err := s.dataFile.Seek(0, io.SeekStart)
		return err
	default:
		return fmt.Errorf("can't write %s event", ev.evType())
	}
}

func (s *Store) initFile() error {
	if s.dataFile != nil {
		return nil // already exists
	}

	if err := s.fs.MkdirAll(s.dataDir, 0o700); err != nil {
		return err
	}
	filename := filepath.Join(s.dataDir, FileName)
	f, err := s.fs.OpenFile(filename, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	s.log.Info("Tape file opened", "file", filename)
	if err := s.replay(f); err != nil {
		f.Close()
		return err
	}
	s.dataFile = f
	s.writer = json.NewEncoder(f)
	return nil
}

// replay loads records from the data file and sends them. Lines that don't
// decode or whose checksum doesn't match are skipped. The file offset is
// left at the end, after completing a torn last line.
func (s *Store) replay(f afero.File) error {
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("can't read tape: %w", err)
	}
	count, skipped := 0, 0
	for lineno, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			s.log.Warn("Skipping undecodable tape record", "line", lineno+1, "err", err)
			skipped++
			continue
		}
		if !r.Valid() {
			s.log.Warn("Skipping tape record with bad checksum", "line", lineno+1)
			skipped++
			continue
		}
		count++
		s.enqueueOutputEvent(&RecordAdded{Record: r})
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		if _, err := f.Write([]byte("\n")); err != nil {
			return fmt.Errorf("can't repair tape: %w", err)
		}
	}
	s.log.Info("Tape replay done", "records", count, "skipped", skipped)
	return nil
}
