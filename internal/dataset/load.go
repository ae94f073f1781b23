package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Delimiter separates fields in the export.
const Delimiter = ';'

// Load reads and partitions the export at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

// Parse reads a semicolon-delimited export from r. A UTF-8 byte order mark is
// dropped and text columns are NFC-normalised so decomposed accents still
// match the column names and the summary sentinel.
func Parse(r io.Reader) (*Dataset, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	return New(rows), nil
}

// ReadRows decodes the export into rows without partitioning them. A valid
// header with no records yields no rows.
func ReadRows(r io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	hasRecords, err := readHeader(raw)
	if err != nil {
		return nil, err
	}
	if !hasRecords {
		return nil, nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.WithDelimiter(Delimiter),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse dataset: %w", df.Err)
	}

	df, err = normaliseHeader(df)
	if err != nil {
		return nil, err
	}

	for _, col := range []string{ColFormation, ColSpecialties} {
		df = df.Mutate(series.New(nfc(df.Col(col).Records()), series.String, col))
		if df.Err != nil {
			return nil, fmt.Errorf("normalise %q: %w", col, df.Err)
		}
	}

	return frameRows(df)
}

// readHeader checks the header record before the frame is built, since an
// empty frame cannot be loaded. It reports whether a record follows.
func readHeader(raw []byte) (bool, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return false, checkSchema(nil)
	}
	if err != nil {
		return false, fmt.Errorf("parse dataset header: %w", err)
	}
	if err := checkSchema(normaliseNames(head)); err != nil {
		return false, err
	}

	// A malformed first record is left for the frame loader to report.
	_, err = cr.Read()
	return !errors.Is(err, io.EOF), nil
}

// normaliseNames returns the NFC, space-trimmed form of each column name.
func normaliseNames(names []string) []string {
	fixed := make([]string, len(names))
	for i, n := range names {
		fixed[i] = norm.NFC.String(strings.TrimSpace(n))
	}
	return fixed
}

// normaliseHeader renames columns to their normalised form.
func normaliseHeader(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	names := df.Names()
	fixed := normaliseNames(names)
	if slices.Equal(fixed, names) {
		return df, nil
	}
	if err := df.SetNames(fixed...); err != nil {
		return df, fmt.Errorf("normalise header: %w", err)
	}
	return df, nil
}

func checkSchema(names []string) error {
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

func frameRows(df dataframe.DataFrame) ([]Row, error) {
	formations := df.Col(ColFormation).Records()
	specialties := df.Col(ColSpecialties).Records()

	ints := make(map[string][]int, 4)
	for _, col := range []string{ColYear, ColWishes, ColReceived, ColAccepted} {
		vals, err := parseInts(col, df.Col(col).Records())
		if err != nil {
			return nil, err
		}
		ints[col] = vals
	}

	rows := make([]Row, df.Nrow())
	for i := range rows {
		rows[i] = Row{
			Formation:   formations[i],
			Year:        ints[ColYear][i],
			Specialties: specialties[i],
			Wishes:      ints[ColWishes][i],
			Received:    ints[ColReceived][i],
			Accepted:    ints[ColAccepted][i],
		}
	}
	return rows, nil
}

func parseInts(col string, records []string) ([]int, error) {
	out := make([]int, len(records))
	for i, raw := range records {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, &RowError{Line: i + 2, Column: col, Value: raw, Err: err}
		}
		out[i] = v
	}
	return out, nil
}

func nfc(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = norm.NFC.String(s)
	}
	return out
}
