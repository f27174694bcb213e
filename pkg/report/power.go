package report

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/ja7ad/gpuwatt/pkg/trace"
)

// PowerCSVSuffix names the normalized power series next to the plot.
const PowerCSVSuffix = "_power_consumption.csv"

type powerRecord struct {
	TimestampNs int64   `csv:"timestamp_nanoseconds"`
	Power       float64 `csv:"power"`
}

// WritePowerCSV writes the normalized samples with a
// "timestamp_nanoseconds,power" header.
func WritePowerCSV(w io.Writer, samples []trace.PowerSample) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(powerRecord{}); err != nil {
		return err
	}
	for _, s := range samples {
		if err := enc.Encode(powerRecord{TimestampNs: s.TNs, Power: s.Watts.Float()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
