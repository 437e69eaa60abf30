package station

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Reference data files, all tab separated without a header row.
const (
	StationsFile     = "stations.tsv"  // name, id, region, lat, lon
	AliasesFile      = "aliases.tsv"   // alias, id
	SecondaryKeyFile = "id_lf_map.tsv" // id, fares API name
	PrimaryKeyFile   = "id_vt.tsv"     // id, train-operations API code
)

// LoadDir reads the reference data files in dir and returns one Record per
// station. Only the stations file is mandatory.
func LoadDir(dir string) ([]Record, error) {
	rows, err := readTSV(filepath.Join(dir, StationsFile), 5, false)
	if err != nil {
		return nil, err
	}

	aliasRows, err := readTSV(filepath.Join(dir, AliasesFile), 2, true)
	if err != nil {
		return nil, err
	}
	aliases := make(map[string][]string)
	for _, row := range aliasRows {
		aliases[row.fields[1]] = append(aliases[row.fields[1]], row.fields[0])
	}

	secondary, err := readKeyMap(filepath.Join(dir, SecondaryKeyFile))
	if err != nil {
		return nil, err
	}
	primary, err := readKeyMap(filepath.Join(dir, PrimaryKeyFile))
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		f := row.fields
		region, err := strconv.ParseUint(f[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid region %q: %w", StationsFile, row.line, f[2], err)
		}
		lat, err := strconv.ParseFloat(f[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid latitude %q: %w", StationsFile, row.line, f[3], err)
		}
		lon, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid longitude %q: %w", StationsFile, row.line, f[4], err)
		}

		id := f[1]
		records = append(records, Record{
			ID:           id,
			RegionID:     uint8(region),
			Position:     Point{Lat: lat, Lon: lon},
			Aliases:      append([]string{f[0]}, aliases[id]...),
			PrimaryKey:   primary[id],
			SecondaryKey: secondary[id],
		})
	}

	return records, nil
}

type tsvRow struct {
	line   int
	fields []string
}

func readTSV(path string, minFields int, optional bool) ([]tsvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	name := filepath.Base(path)
	var rows []tsvRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		line, _ := r.FieldPos(0)
		if len(rec) < minFields {
			return nil, fmt.Errorf("%s:%d: expected %d fields, got %d", name, line, minFields, len(rec))
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(strings.TrimSuffix(rec[i], "\r"))
		}
		rows = append(rows, tsvRow{line: line, fields: rec})
	}
	return rows, nil
}

func readKeyMap(path string) (map[string]string, error) {
	rows, err := readTSV(path, 2, true)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(rows))
	for _, row := range rows {
		m[row.fields[0]] = row.fields[1]
	}
	return m, nil
}
