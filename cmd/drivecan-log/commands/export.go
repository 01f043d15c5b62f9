package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/drivecan-protocol/drivecan-go/pkg/log"
)

// RunExport converts a log file to jsonl or csv, writing to output or
// stdout when output is empty.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
	}
}

var csvHeader = []string{
	"timestamp", "session_id", "bus", "motor", "direction",
	"layer", "category", "type", "function", "can_id",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
}

func csvRow(event log.Event) []string {
	eventType := "unknown"
	var function, canID string
	switch {
	case event.Packet != nil:
		eventType = "packet"
		canID = fmt.Sprintf("0x%03X", event.Packet.CANID)
	case event.Command != nil:
		eventType = "command"
		function = fmt.Sprintf("0x%02X", byte(event.Command.Function))
	case event.StateChange != nil:
		eventType = "state"
	case event.Error != nil:
		eventType = "error"
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.SessionID,
		event.BusName,
		strconv.Itoa(int(event.MotorAddr)),
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		eventType,
		function,
		canID,
	}
}
