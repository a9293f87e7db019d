package tape

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Record is one completed calculation.
type Record struct {
	Expr  string    `json:"expr"`
	Text  string    `json:"text"`
	Value float64   `json:"value"`
	Time  time.Time `json:"time"`
	Sum   uint64    `json:"sum"`
}

// Seal sets the checksum of r.
func (r *Record) Seal() {
	r.Sum = r.checksum()
}

// Valid reports whether the checksum matches the content.
func (r *Record) Valid() bool {
	return r.Sum == r.checksum()
}

func (r *Record) checksum() uint64 {
	d := xxhash.New()
	d.WriteString(r.Expr)
	d.WriteString("\x00")
	d.WriteString(r.Text)
	d.WriteString("\x00")
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(r.Value))
	binary.LittleEndian.PutUint64(buf[8:], uint64(r.Time.UnixNano()))
	d.Write(buf[:])
	return d.Sum64()
}

// RecordAdded is sent for every record, both replayed and new.
type RecordAdded struct {
	Record Record
}

// Cleared is sent when the tape was emptied.
type Cleared struct{}

// IOError is sent when the tape file can't be read or written.
type IOError struct {
	Err error
}

// Event is a tape event.
type Event interface {
	evType() string
}

func (*RecordAdded) evType() string { return "add" }
func (*Cleared) evType() string     { return "clear" }
func (*IOError) evType() string     { return "ioerror" }
