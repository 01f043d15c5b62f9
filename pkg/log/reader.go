package log

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Reader streams events back out of a log file. Files can hold hours
// of bus traffic, so events are decoded one at a time rather than
// loaded whole.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a log file for reading every event in order.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a log file and skips events the filter does
// not match.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(bufio.NewReader(f)),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at end of file.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.match(event) {
			return event, nil
		}
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Filter selects a subset of a log. Zero-valued fields match
// everything; pointer fields distinguish "unset" from a zero value
// (motor address 0 is the broadcast address, a legitimate filter).
type Filter struct {
	// SessionID restricts to one bus session.
	SessionID string

	// BusName restricts to one adapter (serial port or gateway).
	BusName string

	// Direction restricts to sent or received traffic.
	Direction *Direction

	// Layer restricts to one protocol layer.
	Layer *Layer

	// Category restricts to one event category.
	Category *Category

	// MotorAddr restricts to one drive.
	MotorAddr *uint8

	// TimeStart keeps events at or after this instant.
	TimeStart *time.Time

	// TimeEnd keeps events strictly before this instant.
	TimeEnd *time.Time
}

func (f *Filter) match(event Event) bool {
	switch {
	case f.SessionID != "" && event.SessionID != f.SessionID:
		return false
	case f.BusName != "" && event.BusName != f.BusName:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.MotorAddr != nil && event.MotorAddr != *f.MotorAddr:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}
