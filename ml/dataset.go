package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a labeled table: one row per sample, FeatureNames in column order.
// Missing feature cells are stored as NaN.
type Dataset struct {
	FeatureNames []string
	X            *mat.Dense
	Target       []string
}

var missingTokens = map[string]struct{}{
	"":    {},
	"na":  {},
	"nan": {},
	"n/a": {},
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path, targetColumn string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file, targetColumn)
}

// ReadCSV parses a CSV with a header row. targetColumn holds the label and every
// other column, in header order, is a numeric feature.
func ReadCSV(r io.Reader, targetColumn string) (*Dataset, error) {
	// spreadsheet exports often start with a UTF-8 BOM
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, err
	}

	targetIdx := -1
	names := make([]string, 0, len(header))
	columns := make([]int, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == targetColumn {
			targetIdx = i
			continue
		}
		names = append(names, name)
		columns = append(columns, i)
	}
	if targetIdx == -1 {
		return nil, fmt.Errorf("target column %q not found", targetColumn)
	}
	if len(names) == 0 {
		return nil, errors.New("csv has no feature columns")
	}

	var values []float64
	var target []string
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		label := strings.TrimSpace(record[targetIdx])
		if isMissing(label) {
			return nil, fmt.Errorf("line %d: target is empty", line)
		}
		target = append(target, label)

		for j, col := range columns {
			value, err := parseCell(record[col])
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, names[j], err)
			}
			values = append(values, value)
		}
	}
	if len(target) == 0 {
		return nil, errors.New("csv has no rows")
	}

	return &Dataset{
		FeatureNames: names,
		X:            mat.NewDense(len(target), len(names), values),
		Target:       target,
	}, nil
}

func isMissing(cell string) bool {
	_, ok := missingTokens[strings.ToLower(cell)]
	return ok
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if isMissing(cell) {
		return math.NaN(), nil
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", cell)
	}
	return value, nil
}

// Rows returns the number of samples.
func (d *Dataset) Rows() int {
	rows, _ := d.X.Dims()
	return rows
}

// ColumnStats summarizes one feature column, skipping missing cells.
type ColumnStats struct {
	Name    string
	Count   int
	Missing int
	Mean    float64
	Std     float64
	Min     float64
	Max     float64
}

// Describe summarizes every feature column, skipping missing values.
func (d *Dataset) Describe() []ColumnStats {
	rows, cols := d.X.Dims()
	stats := make([]ColumnStats, cols)
	for j := 0; j < cols; j++ {
		s := ColumnStats{Name: d.FeatureNames[j], Min: math.Inf(1), Max: math.Inf(-1)}
		sum := 0.0
		for i := 0; i < rows; i++ {
			v := d.X.At(i, j)
			if math.IsNaN(v) {
				s.Missing++
				continue
			}
			s.Count++
			sum += v
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		if s.Count > 0 {
			s.Mean = sum / float64(s.Count)
		} else {
			s.Min, s.Max = math.NaN(), math.NaN()
		}
		if s.Count > 1 {
			variance := 0.0
			for i := 0; i < rows; i++ {
				if v := d.X.At(i, j); !math.IsNaN(v) {
					variance += (v - s.Mean) * (v - s.Mean)
				}
			}
			// sample standard deviation, like pandas
			s.Std = math.Sqrt(variance / float64(s.Count-1))
		}
		stats[j] = s
	}
	return stats
}

// ClassCounts counts rows per label.
func ClassCounts(labels []string) map[string]int {
	counts := make(map[string]int)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

// WriteSummary prints the overview the trainer shows before fitting: head,
// per-column statistics, missing values and class balance.
func (d *Dataset) WriteSummary(w io.Writer, headRows int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	rows, cols := d.X.Dims()

	fmt.Fprintf(tw, "Data Overview (%d rows, %d features):\n", rows, cols)
	fmt.Fprint(tw, "\t")
	for _, name := range d.FeatureNames {
		fmt.Fprintf(tw, "%s\t", name)
	}
	fmt.Fprint(tw, "Target\t\n")
	for i := 0; i < rows && i < headRows; i++ {
		fmt.Fprintf(tw, "%d\t", i)
		for j := 0; j < cols; j++ {
			fmt.Fprintf(tw, "%g\t", d.X.At(i, j))
		}
		fmt.Fprintf(tw, "%s\t\n", d.Target[i])
	}

	fmt.Fprint(tw, "\nData Description:\n")
	fmt.Fprint(tw, "feature\tcount\tmean\tstd\tmin\tmax\t\n")
	stats := d.Describe()
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%g\t%g\t\n", s.Name, s.Count, s.Mean, s.Std, s.Min, s.Max)
	}

	fmt.Fprint(tw, "\nMissing Values:\n")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t\n", s.Name, s.Missing)
	}
	fmt.Fprintf(tw, "Target\t0\t\n")

	fmt.Fprint(tw, "\nClass Balance:\n")
	counts := ClassCounts(d.Target)
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(tw, "%s\t%d\t\n", label, counts[label])
	}
	return tw.Flush()
}
