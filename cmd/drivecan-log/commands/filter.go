package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/log"
)

// FilterOptions selects which events the filter command keeps. String
// fields are raw flag values; empty means "match everything".
type FilterOptions struct {
	Output    string
	SessionID string
	BusName   string
	Motor     string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// filter converts the flag values into a log.Filter, validating each
// one.
func (o FilterOptions) filter() (log.Filter, error) {
	f := log.Filter{
		SessionID: o.SessionID,
		BusName:   o.BusName,
	}

	if o.Motor != "" {
		addr, err := strconv.ParseUint(o.Motor, 10, 8)
		if err != nil {
			return f, fmt.Errorf("motor address %q: %w", o.Motor, err)
		}
		a := uint8(addr)
		f.MotorAddr = &a
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("time-start: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("time-end: %w", err)
		}
		f.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	return f, nil
}

// RunFilter copies matching events from path into a new log file.
func RunFilter(path string, opts FilterOptions) error {
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		out.Log(event)
		count++
	}

	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
	return nil
}
