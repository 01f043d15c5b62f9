package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/drivecan-protocol/drivecan-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Motors            map[uint8]*MotorStats
	Rejected          int
	Retries           int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// MotorStats holds statistics for a single drive.
type MotorStats struct {
	Events   int
	Commands int
	LastSeen time.Time
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Motors:            make(map[uint8]*MotorStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.MotorAddr != 0 {
			ms, ok := stats.Motors[event.MotorAddr]
			if !ok {
				ms = &MotorStats{}
				stats.Motors[event.MotorAddr] = ms
			}
			ms.Events++
			if event.Command != nil {
				ms.Commands++
			}
			if event.Timestamp.After(ms.LastSeen) {
				ms.LastSeen = event.Timestamp
			}
		}

		if event.Command != nil {
			if event.Command.Rejected {
				stats.Rejected++
			}
			if event.Command.Attempt > 1 {
				stats.Retries++
			}
		}
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== DriveCAN Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerFrame, log.LayerController} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryPacket, log.CategoryCommand, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Motors: %d\n", len(stats.Motors))
	if len(stats.Motors) > 0 {
		addrs := make([]uint8, 0, len(stats.Motors))
		for addr := range stats.Motors {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

		for _, addr := range addrs {
			ms := stats.Motors[addr]
			fmt.Fprintf(w, "  [%3d] %d events, %d commands, last seen %s\n",
				addr, ms.Events, ms.Commands, ms.LastSeen.Format(time.RFC3339))
		}
	}

	if stats.Rejected > 0 || stats.Retries > 0 || stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Rejected Commands: %d\n", stats.Rejected)
		fmt.Fprintf(w, "Retried Commands:  %d\n", stats.Retries)
		fmt.Fprintf(w, "Errors:            %d\n", stats.Errors)
	}
}
