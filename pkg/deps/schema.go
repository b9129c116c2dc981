package deps

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed report.schema.json
var reportSchema []byte

// ErrInvalidReport indicates a JSON report that does not match the schema.
var ErrInvalidReport = errors.New("invalid report")

// Schema returns the JSON schema of Report.
func Schema() []byte {
	return reportSchema
}

// Validate checks a JSON-encoded report against the embedded schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(reportSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidReport, strings.Join(problems, "; "))
}
