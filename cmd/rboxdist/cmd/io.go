package cmd

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/rboxdist/internal/rbox"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatYAML = "yaml"
)

// batchInput is the document accepted by --input. JSON is read through the
// YAML decoder.
type batchInput struct {
	Boxes1   [][]float64 `yaml:"boxes1" json:"boxes1"`
	Boxes2   [][]float64 `yaml:"boxes2" json:"boxes2"`
	Polygons [][]float64 `yaml:"polygons" json:"polygons"`
}

// addBatchFlags registers the shared batch input flags.
func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("boxes1", "a", "", `first batch as rows "cx,cy,w,h,angle;..."`)
	cmd.Flags().StringP("boxes2", "b", "", "second batch, same row syntax")
	cmd.Flags().StringP("input", "i", "", "YAML or JSON file with boxes1, boxes2 and polygons (- for stdin)")
}

// readBatch collects the input document from --input and the row flags. Row
// flags override the matching file entries.
func readBatch(cmd *cobra.Command) (batchInput, error) {
	var in batchInput

	if path, _ := cmd.Flags().GetString("input"); path != "" {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return in, fmt.Errorf("failed to read input: %w", err)
		}
		if err := yaml.Unmarshal(data, &in); err != nil {
			return in, fmt.Errorf("failed to parse input %s: %w", path, err)
		}
	}

	for name, dst := range map[string]*[][]float64{"boxes1": &in.Boxes1, "boxes2": &in.Boxes2, "polygons": &in.Polygons} {
		if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
			continue
		}
		s, _ := cmd.Flags().GetString(name)
		rows, err := parseRows(s)
		if err != nil {
			return in, fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = rows
	}

	return in, nil
}

// readPairs returns both box batches. Empty batches are allowed.
func readPairs(cmd *cobra.Command) ([]rbox.Box, []rbox.Box, error) {
	in, err := readBatch(cmd)
	if err != nil {
		return nil, nil, err
	}
	a, err := rbox.BoxesFromRows(in.Boxes1)
	if err != nil {
		return nil, nil, fmt.Errorf("boxes1: %w", err)
	}
	b, err := rbox.BoxesFromRows(in.Boxes2)
	if err != nil {
		return nil, nil, fmt.Errorf("boxes2: %w", err)
	}
	return a, b, nil
}

// parseRows parses "1,2,3;4,5,6". Blank rows are skipped.
func parseRows(s string) ([][]float64, error) {
	rows := [][]float64{}
	for i, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		row := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writer renders results in the configured output format. Precision applies
// to text and csv; json and yaml carry full float64 values.
type writer struct {
	out       io.Writer
	format    string
	precision int
}

func newWriter(out io.Writer, format string, precision int) *writer {
	if format == "" {
		format = outputFormatText
	}
	return &writer{out: out, format: format, precision: precision}
}

func (w *writer) num(v float64) string {
	return strconv.FormatFloat(v, 'f', w.precision, 64)
}

// table writes named columns. Text output prints a header only when there is
// more than one column.
func (w *writer) table(header []string, rows [][]float64) error {
	switch w.format {
	case outputFormatJSON, outputFormatYAML:
		cols := make(map[string][]float64, len(header))
		for j, h := range header {
			col := make([]float64, len(rows))
			for i, r := range rows {
				col[i] = r[j]
			}
			cols[h] = col
		}
		return w.document(cols)
	case outputFormatCSV:
		cw := csv.NewWriter(w.out)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, r := range rows {
			if err := cw.Write(w.strings(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		if len(header) > 1 {
			if _, err := fmt.Fprintln(w.out, strings.Join(header, " ")); err != nil {
				return err
			}
		}
		for _, r := range rows {
			if _, err := fmt.Fprintln(w.out, strings.Join(w.strings(r), " ")); err != nil {
				return err
			}
		}
		return nil
	}
}

// column writes a single named column.
func (w *writer) column(name string, values []float64) error {
	rows := make([][]float64, len(values))
	for i, v := range values {
		rows[i] = []float64{v}
	}
	return w.table([]string{name}, rows)
}

// matrix writes rows of possibly differing length under name.
func (w *writer) matrix(name string, m [][]float64) error {
	switch w.format {
	case outputFormatJSON, outputFormatYAML:
		if m == nil {
			m = [][]float64{}
		}
		return w.document(map[string][][]float64{name: m})
	case outputFormatCSV:
		cw := csv.NewWriter(w.out)
		for _, r := range m {
			if err := cw.Write(w.strings(r)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		for _, r := range m {
			if _, err := fmt.Fprintln(w.out, strings.Join(w.strings(r), " ")); err != nil {
				return err
			}
		}
		return nil
	}
}

// document encodes v as JSON or YAML. Other formats are rejected; callers
// render text and csv themselves.
func (w *writer) document(v interface{}) error {
	switch w.format {
	case outputFormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputFormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.New("document output needs json or yaml format")
	}
}

func (w *writer) structured() bool {
	return w.format == outputFormatJSON || w.format == outputFormatYAML
}

func (w *writer) strings(r []float64) []string {
	s := make([]string, len(r))
	for i, v := range r {
		s[i] = w.num(v)
	}
	return s
}
