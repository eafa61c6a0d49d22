package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"lookback_window", "volume_multiplier", "trade_count", "multiple", "cagr", "sharpe", "max_drawdown", "win_ratio", "error"}

// WriteCSV 导出扫描结果表，无定义指标写空串
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range results {
		row := []string{
			strconv.Itoa(r.LookbackWindow),
			strconv.FormatFloat(r.VolumeMultiplier, 'f', -1, 64),
			strconv.Itoa(r.TradeCount),
			strconv.FormatFloat(r.Multiple, 'f', 6, 64),
			csvValue(r.CAGR.Float64, r.CAGR.Valid),
			csvValue(r.Sharpe.Float64, r.Sharpe.Valid),
			csvValue(r.MaxDrawdown.Float64, r.MaxDrawdown.Valid),
			csvValue(r.WinRatio.Float64, r.WinRatio.Valid),
			r.Err,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvValue(v float64, valid bool) string {
	if !valid {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
