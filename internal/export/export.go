// Package export writes harvested businesses to JSON or CSV. JSON keeps
// the full nested record; CSV flattens to the scalar columns.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/map-harvest/harvest/pkg/models"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or csv)", s)
	}
}

// Write encodes the businesses in the given format.
func Write(w io.Writer, format Format, businesses []models.Business) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, businesses)
	case FormatCSV:
		return writeCSV(w, businesses)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeJSON(w io.Writer, businesses []models.Business) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(businesses)
}

var csvHeader = []string{
	"fingerprint", "name", "category", "city", "district",
	"rating", "review_count", "address", "phone", "website",
	"price_info", "image_url", "gallery_count", "review_sample_count",
	"menu_item_count", "detail_url", "scraped_at",
}

func writeCSV(w io.Writer, businesses []models.Business) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, b := range businesses {
		row := []string{
			b.Fingerprint,
			b.Name,
			b.Category,
			b.City,
			b.District,
			strconv.FormatFloat(b.Rating, 'f', 1, 64),
			strconv.Itoa(b.ReviewCount),
			b.Address,
			b.Phone,
			b.Website,
			b.PriceInfo,
			b.ImageURL,
			strconv.Itoa(len(b.GalleryImages)),
			strconv.Itoa(len(b.Reviews)),
			strconv.Itoa(len(b.MenuItems)),
			b.DetailURL,
			b.ScrapedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
