package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// LoggingMiddleware returns middleware that logs every request the Xemway
// MCP server receives. Tool calls carry the tool name, and a tool result
// flagged as an error is logged at warn with its message.
func LoggingMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()

			result, err := next(ctx, method, req)

			attrs := []slog.Attr{
				slog.String("mcp_method", method),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if params, ok := req.GetParams().(*sdkmcp.CallToolParamsRaw); ok && params != nil {
				attrs = append(attrs, slog.String("tool", params.Name))
			}

			switch {
			case err != nil:
				attrs = append(attrs, slog.String("error", err.Error()))
				slog.LogAttrs(ctx, slog.LevelError, "xemway mcp request failed", attrs...)
			case toolFailed(result):
				attrs = append(attrs, slog.String("error", toolMessage(result.(*sdkmcp.CallToolResult))))
				slog.LogAttrs(ctx, slog.LevelWarn, "xemway tool returned an error", attrs...)
			default:
				slog.LogAttrs(ctx, slog.LevelInfo, "xemway mcp request completed", attrs...)
			}

			return result, err
		}
	}
}

func toolFailed(result sdkmcp.Result) bool {
	res, ok := result.(*sdkmcp.CallToolResult)
	return ok && res != nil && res.IsError
}

// toolMessage returns the first text block of a failed tool result.
func toolMessage(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
