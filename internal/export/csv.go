package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/placecrawl/internal/model"
)

// utf8BOM makes spreadsheet tools detect UTF-8 for Hangul text
const utf8BOM = "\ufeff"

// ImageSeparator joins image URLs in a single CSV cell
const ImageSeparator = ", "

var csvHeader = []string{
	"name", "raw_category", "address", "latitude", "longitude",
	"source_id", "source_name", "keyword", "image_urls",
}

// WriteCSV writes records with a header row, prefixed by a UTF-8 BOM
func WriteCSV(w io.Writer, records []model.PlaceRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Name,
			r.RawCategory,
			r.Address,
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			r.SourceID,
			r.SourceName,
			r.Keyword,
			strings.Join(r.ImageURLs, ImageSeparator),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %q: %w", r.SourceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
