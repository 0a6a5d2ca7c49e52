package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tweidv/backtest-service/types"
)

// WriteTradesCSVFile writes the trade log to a CSV file at the given path.
func WriteTradesCSVFile(path string, trades []types.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, trades)
}

// WriteTradesCSV writes the trade log to any io.Writer as CSV. Pass
// os.Stdout for debugging, or a file.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"timestamp",
		"platform",
		"instrument",
		"side",
		"quantity",
		"price",
		"fee",
		"net_value",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, trade := range trades {
		record := []string{
			time.Unix(trade.Timestamp, 0).UTC().Format(time.RFC3339),
			string(trade.Platform),
			trade.Instrument,
			string(trade.Side),
			trade.Quantity.String(),
			trade.Price.String(),
			trade.Fee.String(),
			trade.NetValue().String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
