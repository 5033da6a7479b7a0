package tools

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xemway/xemway-files/internal/query"
	"github.com/xemway/xemway-files/pkg/client"
)

const maxListLimit = 200

// FilesListInput is the input for xemway_files_list.
type FilesListInput struct {
	Device      string        `json:"device" jsonschema:"Device name, e.g. DELTA_0018"`
	Filters     []FilterInput `json:"filters,omitempty" jsonschema:"Field predicates applied server-side"`
	Logic       string        `json:"logic,omitempty" jsonschema:"How filters combine: and (default) or or"`
	Offset      int           `json:"offset,omitempty" jsonschema:"Zero-based index of the first record to return"`
	Limit       int           `json:"limit,omitempty" jsonschema:"Max records to return (default: page size, max: 200)"`
	JQ          string        `json:"jq,omitempty" jsonschema:"Optional jq expression applied to each returned record"`
	Deduplicate bool          `json:"deduplicate,omitempty" jsonschema:"Remove duplicate jq results (default: false)"`
	MaxValues   int           `json:"max_values,omitempty" jsonschema:"Stop after this many jq results (default: unlimited)"`
}

// FileSummary is one session file in a listing.
type FileSummary struct {
	SessionID  string         `json:"session_id"`
	DeviceName string         `json:"device_name,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	Size       int64          `json:"size,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// FilesListOutput is the output for xemway_files_list.
type FilesListOutput struct {
	Device   string        `json:"device"`
	Count    int           `json:"count"`
	Offset   int           `json:"offset"`
	Files    []FileSummary `json:"files,omitempty"`
	Values   []any         `json:"values,omitempty"`
	JQErrors []string      `json:"jq_errors,omitempty"`
	Hint     string        `json:"hint,omitempty"`
}

// ToolFilesList lists a window of a device's session files.
func ToolFilesList(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FilesListInput) (*sdkmcp.CallToolResult, FilesListOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FilesListInput) (*sdkmcp.CallToolResult, FilesListOutput, error) {
		if input.Device == "" {
			return nil, FilesListOutput{}, ErrInvalidInput("device is required")
		}
		if input.Offset < 0 {
			return nil, FilesListOutput{}, ErrInvalidInput("offset must not be negative")
		}
		if input.MaxValues < 0 {
			return nil, FilesListOutput{}, ErrInvalidInput("max_values must not be negative")
		}
		if input.JQ != "" {
			if err := d.Query.ValidateExpression(input.JQ); err != nil {
				return nil, FilesListOutput{}, ErrInvalidInput(err.Error())
			}
		}
		f, err := buildFilter(input.Logic, input.Filters)
		if err != nil {
			return nil, FilesListOutput{}, err
		}

		limit := input.Limit
		if limit <= 0 {
			limit = d.Config.PageSize
		}
		limit = min(limit, maxListLimit)

		cur := d.Client.DeviceFileCursor(input.Device, d.cursorOptions()...)
		if err := cur.Init(ctx, f); err != nil {
			return nil, FilesListOutput{}, WrapXemwayError(err)
		}
		count, _ := cur.Count()

		output := FilesListOutput{Device: input.Device, Count: count, Offset: input.Offset}
		if count == 0 {
			output.Hint = "No session files match; loosen the filters or check the device name."
			return nil, output, nil
		}
		if input.Offset >= count {
			return nil, FilesListOutput{}, ErrOutOfRange(fmt.Sprintf("offset %d is past the last record (count %d)", input.Offset, count))
		}
		if input.Offset > 0 {
			if _, err := cur.Seek(ctx, input.Offset); err != nil {
				return nil, FilesListOutput{}, WrapXemwayError(err)
			}
		}

		var files []client.SessionFile
		for item, err := range cur.All(ctx) {
			if err != nil {
				return nil, FilesListOutput{}, WrapXemwayError(err)
			}
			files = append(files, item)
			if len(files) == limit {
				break
			}
		}

		output.Files = make([]FileSummary, len(files))
		for i, file := range files {
			output.Files[i] = summarize(file)
		}
		if next := input.Offset + len(files); next < count {
			output.Hint = fmt.Sprintf("%d more records; call again with offset %d.", count-next, next)
		}

		if input.JQ != "" {
			if err := applyJQ(d.Query, files, input, &output); err != nil {
				return nil, FilesListOutput{}, err
			}
		}
		return nil, output, nil
	}
}

func summarize(f client.SessionFile) FileSummary {
	return FileSummary{
		SessionID:  f.SessionID(),
		DeviceName: f.DeviceName,
		CreatedAt:  f.CreatedAt,
		Size:       f.Size,
		Fields:     f.Fields,
	}
}

func applyJQ(e *query.Engine, files []client.SessionFile, input FilesListInput, out *FilesListOutput) error {
	records := make([]any, len(files))
	labels := make([]string, len(files))
	for i, f := range files {
		records[i] = f
		labels[i] = f.SessionID()
	}

	res, err := e.Query(records, labels, input.JQ, query.Options{
		Deduplicate: input.Deduplicate,
		MaxResults:  input.MaxValues,
	})
	if err != nil {
		return ErrInvalidInput(err.Error())
	}
	out.Values = res.Values
	out.JQErrors = res.Errors
	return nil
}
