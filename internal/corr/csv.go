package corr

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CSVOptions controls how ReadCSV interprets a matrix file.
type CSVOptions struct {
	Header      bool // first record is a header
	IndexColumn bool // first field of every record is a row label
}

// ReadCSV parses a numeric matrix, one period per record. Empty fields and
// "nan"/"NaN"/"NA" are read as missing.
func ReadCSV(r io.Reader, opts CSVOptions) (Matrix, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	cr.ReuseRecord = true

	if opts.Header {
		if _, err := cr.Read(); err != nil {
			return Matrix{}, fmt.Errorf("read header: %w", err)
		}
	}

	var rows [][]float64
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Matrix{}, err
		}
		if opts.IndexColumn && len(rec) > 0 {
			rec = rec[1:]
		}
		row := make([]float64, len(rec))
		for j, field := range rec {
			v, err := parseCell(field)
			if err != nil {
				return Matrix{}, fmt.Errorf("record %d field %d: %w", line, j, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return FromRows(rows)
}

// LoadCSV reads a matrix file from disk.
func LoadCSV(path string, opts CSVOptions) (Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matrix{}, err
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
