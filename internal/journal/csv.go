package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/krajekis/polysignal/internal/engine"
)

// SignalsHeader is the stable column set of the signals CSV. Order never
// changes between releases so long-running logs stay appendable.
var SignalsHeader = []string{
	"timestamp", "entry_minute", "time_left_min", "regime", "signal",
	"model_up", "model_down", "mkt_up", "mkt_down", "edge_up", "edge_down", "recommendation",
}

// CSVWriter appends one row per cycle to the signals log.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a writer for the given path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Append writes one cycle record. The header is written once, when the file
// is first created.
func (w *CSVWriter) Append(rec *engine.CycleRecord) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	_, statErr := os.Stat(w.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open signals csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write(SignalsHeader); err != nil {
			return err
		}
	}

	signal := "NO_TRADE"
	recommendation := "NO_TRADE"
	if rec.Recommendation.Action == engine.ActionEnter {
		signal = string(rec.Recommendation.Side)
		recommendation = fmt.Sprintf("%s:%s", rec.Recommendation.Side, rec.Recommendation.Phase)
	}

	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		strconv.FormatFloat(rec.ElapsedMinutes, 'f', 3, 64),
		strconv.FormatFloat(rec.RemainingMinutes, 'f', 3, 64),
		string(rec.Regime),
		signal,
		strconv.FormatFloat(rec.AdjustedUp, 'f', 4, 64),
		strconv.FormatFloat(rec.AdjustedDown, 'f', 4, 64),
		fmtOpt(rec.MarketUp),
		fmtOpt(rec.MarketDown),
		fmtOpt(rec.EdgeUp),
		fmtOpt(rec.EdgeDown),
		recommendation,
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// fmtOpt renders a nullable value; unknown stays empty, never zero.
func fmtOpt(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
