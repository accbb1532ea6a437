package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cjscld94-cyber/qwer/internal/schema"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes stations as UTF-8 CSV prefixed with a BOM, which keeps
// Korean text readable when the file is opened straight into Excel. The
// order column is only emitted when the dataset resolved one.
func WriteCSV(w io.Writer, stations []schema.Station, withOrder bool) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"name", "line", "latitude", "longitude"}
	if withOrder {
		header = append(header, "order")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, st := range stations {
		row := []string{
			st.Name,
			st.Line,
			strconv.FormatFloat(st.Latitude, 'f', -1, 64),
			strconv.FormatFloat(st.Longitude, 'f', -1, 64),
		}
		if withOrder {
			cell := ""
			if st.Order != nil {
				cell = strconv.FormatFloat(*st.Order, 'f', -1, 64)
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the CSV export to a file on disk.
func WriteCSVFile(path string, stations []schema.Station, withOrder bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, stations, withOrder); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
