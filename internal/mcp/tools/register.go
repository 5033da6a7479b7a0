package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "xemway_files_list",
		Description: "List the session files recorded by a device. Returns {device, count, offset, files: [{session_id, device_name, created_at, size, fields}], hint}. Filters are sent to the server as {field, operator, value} predicates combined with logic (and/or), e.g. {field: session_name, operator: contains, value: 20211119}. Use offset/limit to page through large listings. Set jq to project each record (e.g. .session_name); results are returned in values.",
	}, ToolFilesList(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "xemway_file_download",
		Description: "Download the archive of one session to a local path. Set extract to unzip it into <destination>_extracted; keep_files, keep_files_containing and erase_files_containing then prune the top-level extracted files (hidden files are kept). The archive is deleted after pruning or when erase_after_extract is set. Returns the written path, byte count and the kept/removed file names. Use session_id values from xemway_files_list.",
	}, ToolFileDownload(d))
}
