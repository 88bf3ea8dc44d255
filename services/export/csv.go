package exportsvc

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes t as comma-separated values, prefixed with a UTF-8 BOM.
func WriteCSV(w io.Writer, t Table) error {
	if _, err := w.Write(bom); err != nil {
		return errors.Wrap(err, "writing BOM")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "writing rows")
	}
	return nil
}
