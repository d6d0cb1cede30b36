package support

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"
)

// batchDoc mirrors the CLI input document.
type batchDoc struct {
	Boxes1   [][]float64 `yaml:"boxes1,omitempty"`
	Boxes2   [][]float64 `yaml:"boxes2,omitempty"`
	Polygons [][]float64 `yaml:"polygons,omitempty"`
}

// aBatchFileWithRows writes a batch file from a table with a "batch" column
// (boxes1, boxes2 or polygons) followed by the row values.
func (testCtx *TestContext) aBatchFileWithRows(name string, table *godog.Table) error {
	var doc batchDoc
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) < 2 {
			return fmt.Errorf("row %d: need a batch name and values", i)
		}
		values := make([]float64, 0, len(row.Cells)-1)
		for _, c := range row.Cells[1:] {
			if strings.TrimSpace(c.Value) == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			values = append(values, v)
		}

		switch row.Cells[0].Value {
		case "boxes1":
			doc.Boxes1 = append(doc.Boxes1, values)
		case "boxes2":
			doc.Boxes2 = append(doc.Boxes2, values)
		case "polygons":
			doc.Polygons = append(doc.Polygons, values)
		default:
			return fmt.Errorf("row %d: unknown batch %q", i, row.Cells[0].Value)
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode batch file: %w", err)
	}
	return testCtx.writeFile(name, data)
}

// aConfigFileWithContent writes a configuration file from a doc string.
func (testCtx *TestContext) aConfigFileWithContent(name string, content *godog.DocString) error {
	return testCtx.writeFile(name, []byte(content.Content))
}

func (testCtx *TestContext) writeFile(name string, data []byte) error {
	path := testCtx.TempPath(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	testCtx.Files[name] = path
	return nil
}

// theFileShouldExist checks a file created by a command.
func (testCtx *TestContext) theFileShouldExist(name string) error {
	path := testCtx.substituteCommandVariables(name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file %s does not exist: %w", path, err)
	}
	testCtx.TrackFile(path)
	return nil
}

// theFileShouldContain checks the content of a file created by a command.
func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	path := testCtx.substituteCommandVariables(name)
	data, err := os.ReadFile(path) //nolint:gosec // G304: scenario temp file
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'\nActual content: %s", path, expected, string(data))
	}
	return nil
}

// RegisterFileSteps registers input and output file steps.
func (testCtx *TestContext) RegisterFileSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a batch file "([^"]*)" with rows:$`, testCtx.aBatchFileWithRows)
	sc.Step(`^a config file "([^"]*)" with content:$`, testCtx.aConfigFileWithContent)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}
