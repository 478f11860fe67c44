package db

import (
	"encoding/csv"
	"os"
	"strings"

	"gorm.io/gorm"
)

type WordRecord struct {
	Theme string
	Text  string
}

// LoadWordLibrary reads theme,word rows from a CSV and upserts them into the
// words table.
func LoadWordLibrary(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	records, err := ReadWords(path)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		entry := Word{
			Theme: record.Theme,
			Text:  record.Text,
		}
		if err := conn.FirstOrCreate(&entry, Word{Theme: entry.Theme, Text: entry.Text}).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// ReadWords parses a CSV with a header row and theme,word columns.
func ReadWords(path string) ([]WordRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []WordRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}
		theme := strings.TrimSpace(row[0])
		text := strings.TrimSpace(row[1])
		if theme == "" || text == "" {
			continue
		}
		records = append(records, WordRecord{Theme: theme, Text: text})
	}
	return records, nil
}
