// Package export writes aggregated statistics as CSV tables for plotting.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"diachron/internal/domain"
	perr "diachron/internal/platform/errors"
	"diachron/internal/stats"
)

// MeansFileName is the means table file of a variant.
func MeansFileName(v domain.Variant) string { return fmt.Sprintf("%s_mean_output.csv", v) }

// IntervalFileName is the (mean, lower, upper) table file of one target.
func IntervalFileName(v domain.Variant, target string) string {
	return fmt.Sprintf("%s_%s_output.csv", v, target)
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteMeans writes the era labels as a header row followed by one row of
// per-era means per target, in target order. Eras without enough samples are
// written as the missing marker.
func WriteMeans(w io.Writer, t *stats.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Eras); err != nil {
		return err
	}
	for _, row := range t.Stats {
		rec := make([]string, len(row))
		for i, st := range row {
			rec[i] = domain.MissingMarker
			if st.OK {
				rec[i] = formatFloat(st.Mean)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIntervals writes one (mean, lower, upper) row per era.
func WriteIntervals(w io.Writer, row []stats.EraStatistic) error {
	cw := csv.NewWriter(w)
	for _, st := range row {
		rec := []string{domain.MissingMarker, domain.MissingMarker, domain.MissingMarker}
		if st.OK {
			rec = []string{formatFloat(st.Mean), formatFloat(st.Lower), formatFloat(st.Upper)}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path, creating parent directories, and fills it with fn.
func WriteFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = perr.Wrapf(cerr, perr.ErrorCodeIO, "close %s", path)
		}
	}()
	if err := fn(f); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "write %s", path)
	}
	return nil
}
