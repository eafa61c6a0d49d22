package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"breakoutbot/src/bar"
)

var header = []string{"time", "open", "high", "low", "close", "volume"}

// ErrBadHeader CSV表头不匹配
var ErrBadHeader = errors.New("unexpected csv header, want time,open,high,low,close,volume")

// WriteCSV 写出K线，时间为 RFC3339（UTC）
func WriteCSV(w io.Writer, bars []bar.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, b := range bars {
		row := []string{
			b.Timestamp.UTC().Format(time.RFC3339),
			b.Open.String(),
			b.High.String(),
			b.Low.String(),
			b.Close.String(),
			b.Volume.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV 读取K线并校验序列，所有K线视为已收盘
func ReadCSV(r io.Reader) ([]bar.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, name := range header {
		if first[i] != name {
			return nil, ErrBadHeader
		}
	}

	var bars []bar.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		b, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}

	if err := bar.CheckSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// ReadFile 从文件读取K线
func ReadFile(path string) ([]bar.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteFile 写K线到文件
func WriteFile(path string, bars []bar.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	if err := WriteCSV(f, bars); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseRow(rec []string) (bar.Bar, error) {
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return bar.Bar{}, fmt.Errorf("invalid time %q: %w", rec[0], err)
	}

	b, err := bar.Parse(ts.UTC(), rec[1], rec[2], rec[3], rec[4], rec[5])
	if err != nil {
		return bar.Bar{}, err
	}
	b.Complete = true
	return b, nil
}
