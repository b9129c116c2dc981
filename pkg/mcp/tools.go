package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/pydeps/pkg/deps"
)

// Tool names.
const (
	ToolNameScan     = "pydeps_scan"
	ToolNameScanFile = "pydeps_scan_file"
)

// MaxCodeInputBytes is the largest accepted inline code input (1 MiB).
const MaxCodeInputBytes = 1 << 20

const inlineSourceName = "inline.py"

// Sentinel errors for tool input validation.
var (
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
	// ErrPathNotAbsolute indicates the path is relative.
	ErrPathNotAbsolute = errors.New("path must be absolute")
)

// ScanInput is the input schema for the pydeps_scan tool.
type ScanInput struct {
	Code     string `json:"code"               jsonschema:"Python source code to scan"`
	Python   string `json:"python,omitempty"   jsonschema:"Python version of the standard library catalog (e.g. 3.12); default newest"`
	Filename string `json:"filename,omitempty" jsonschema:"optional file name used to label the report"`
}

// ScanFileInput is the input schema for the pydeps_scan_file tool.
type ScanFileInput struct {
	Path   string `json:"path"             jsonschema:"absolute path to a Python file"`
	Python string `json:"python,omitempty" jsonschema:"Python version of the standard library catalog (e.g. 3.12); default newest"`
}

// ToolOutput is the structured output of every tool.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleScan(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ScanInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	name := input.Filename
	if name == "" {
		name = inlineSourceName
	}

	sc, err := s.scanner(input.Python)
	if err != nil {
		return errorResult(err)
	}

	key := cacheKey(sc.Catalog().Version(), name, input.Code)

	if rep, ok := s.cache.Get(key); ok {
		return jsonResult(rep)
	}

	res, err := sc.ScanSource(ctx, name, []byte(input.Code))
	if err != nil {
		return errorResult(err)
	}

	rep := res.Report()
	s.cache.Add(key, rep)

	return jsonResult(rep)
}

func (s *Server) handleScanFile(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ScanFileInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Path == "" {
		return errorResult(ErrEmptyPath)
	}

	if !filepath.IsAbs(input.Path) {
		return errorResult(fmt.Errorf("%w: %s", ErrPathNotAbsolute, input.Path))
	}

	sc, err := s.scanner(input.Python)
	if err != nil {
		return errorResult(err)
	}

	res, err := sc.ScanFile(ctx, input.Path)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(res.Report())
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with the JSON report as text content.
func jsonResult(rep deps.Report) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: rep}, nil
}

func validateCodeInput(code string) error {
	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}

func cacheKey(python, name, code string) string {
	sum := sha256.Sum256([]byte(python + "\x00" + name + "\x00" + code))

	return hex.EncodeToString(sum[:])
}
