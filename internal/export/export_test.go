package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/map-harvest/harvest/pkg/models"
)

func sample() []models.Business {
	return []models.Business{
		{
			Fingerprint: "fp1",
			Name:        "Cafe Luna",
			Category:    "Kafe",
			City:        "Ankara",
			District:    "Çankaya",
			Rating:      4.6,
			ReviewCount: 120,
			Address:     "Tunalı Hilmi Cad. No:5",
			Phone:       "0312 123 45 67",
			GalleryImages: []string{
				"https://img.example/p/a=s1600",
				"https://img.example/p/b=s1600",
			},
			Reviews:   []models.Review{{Author: "Ayşe", Rating: 5, Text: "Harika, \"çok\" sevdim"}},
			ScrapedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sample()))

	var decoded []models.Business
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Cafe Luna", decoded[0].Name)
	assert.Len(t, decoded[0].Reviews, 1, "json keeps the nested record")
}

func TestWriteCSVFlattens(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header, row := rows[0], rows[1]
	assert.Equal(t, csvHeader, header)
	assert.Equal(t, "Cafe Luna", row[1])
	assert.Equal(t, "Çankaya", row[4])
	assert.Equal(t, "4.6", row[5])
	assert.Equal(t, "2", row[12], "gallery flattens to a count")
	assert.Equal(t, "1", row[13])
	assert.Equal(t, "2026-03-01 12:30:00", row[16])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, nil))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
