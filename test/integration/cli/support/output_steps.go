package support

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var js json.RawMessage
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &js); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	return nil
}

// theJSONShouldContain verifies JSON contains a specific top-level or
// dotted field.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &data); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	current := data
	parts := strings.Split(field, ".")
	for i, part := range parts {
		val, ok := current[part]
		if !ok {
			return fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return nil
		}
		next, ok := val.(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot navigate deeper into non-object field '%s'", part)
		}
		current = next
	}
	return nil
}

// theOutputShouldBeValidCSV verifies the output parses as CSV.
func (testCtx *TestContext) theOutputShouldBeValidCSV() error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(records) == 0 {
		return errors.New("CSV output is empty")
	}
	return nil
}

// theOutputShouldHaveLines counts non-empty output lines.
func (testCtx *TestContext) theOutputShouldHaveLines(n int) error {
	if got := len(testCtx.lines()); got != n {
		return fmt.Errorf("expected %d lines, got %d\nOutput: %s", n, got, testCtx.LastOutput)
	}
	return nil
}

// valueOnLineShouldBeApproximately compares the first field of a 1-based
// output line.
func (testCtx *TestContext) valueOnLineShouldBeApproximately(line int, want, tol float64) error {
	v, err := testCtx.field(line, 1)
	if err != nil {
		return err
	}
	if math.Abs(v-want) > tol {
		return fmt.Errorf("line %d: expected %g ± %g, got %g", line, want, tol, v)
	}
	return nil
}

// valueOnLineShouldBeBetween checks the first field of a 1-based output line
// lies in [lo, hi].
func (testCtx *TestContext) valueOnLineShouldBeBetween(line int, lo, hi float64) error {
	v, err := testCtx.field(line, 1)
	if err != nil {
		return err
	}
	if v < lo || v > hi {
		return fmt.Errorf("line %d: expected value in [%g, %g], got %g", line, lo, hi, v)
	}
	return nil
}

// everyValueShouldBeApproximately checks every line holds a single value
// close to want.
func (testCtx *TestContext) everyValueShouldBeApproximately(want, tol float64) error {
	lines := testCtx.lines()
	if len(lines) == 0 {
		return errors.New("output is empty")
	}
	for i := range lines {
		if err := testCtx.valueOnLineShouldBeApproximately(i+1, want, tol); err != nil {
			return err
		}
	}
	return nil
}

// theErrorShouldMention verifies the error message contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	full := testCtx.LastError.Error() + " " + testCtx.LastStderr
	if !strings.Contains(strings.ToLower(full), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, full)
	}
	return nil
}

// theLogsShouldContain verifies the structured log stream.
func (testCtx *TestContext) theLogsShouldContain(text string) error {
	if !strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("logs do not contain '%s'\nActual logs: %s", text, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) lines() []string {
	var out []string
	for _, l := range strings.Split(testCtx.LastOutput, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func (testCtx *TestContext) field(line, col int) (float64, error) {
	lines := testCtx.lines()
	if line < 1 || line > len(lines) {
		return 0, fmt.Errorf("output has %d lines, no line %d\nOutput: %s", len(lines), line, testCtx.LastOutput)
	}
	fields := strings.Fields(lines[line-1])
	if col < 1 || col > len(fields) {
		return 0, fmt.Errorf("line %d has %d fields, no field %d", line, len(fields), col)
	}
	return strconv.ParseFloat(fields[col-1], 64)
}

// RegisterOutputSteps registers output and error assertions.
func (testCtx *TestContext) RegisterOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the output should be valid CSV$`, testCtx.theOutputShouldBeValidCSV)
	sc.Step(`^the output should have (\d+) lines?$`, testCtx.theOutputShouldHaveLines)
	sc.Step(`^the value on line (\d+) should be approximately (-?[\d.eE+-]+) within (-?[\d.eE+-]+)$`,
		testCtx.valueOnLineShouldBeApproximately)
	sc.Step(`^the value on line (\d+) should be between (-?[\d.eE+-]+) and (-?[\d.eE+-]+)$`,
		testCtx.valueOnLineShouldBeBetween)
	sc.Step(`^every value should be approximately (-?[\d.eE+-]+) within (-?[\d.eE+-]+)$`,
		testCtx.everyValueShouldBeApproximately)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the logs should contain "([^"]*)"$`, testCtx.theLogsShouldContain)
}
