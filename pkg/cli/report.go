package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"preload/pkg/common"
	"preload/pkg/display"
)

func (e *Engine) report(ctx context.Context, outcomes []outcome) *common.ExecutionResult {
	table := &common.Table{Header: []string{"SRC", "TYPE", "STATUS", "SIZE", "RESULT"}}
	output := &common.Output{Table: table}
	res := &common.ExecutionResult{Output: output}

	var ok, failed, canceled int
	var total uint64
	for _, o := range outcomes {
		size, result := "-", ""
		switch o.status {
		case display.StatusOK:
			ok++
			total += uint64(o.size)
			size = humanize.Bytes(uint64(o.size))
			result = describe(o.result)
		case display.StatusCanceled:
			canceled++
		default:
			failed++
			result = "load failed"
			if o.err != nil {
				result = o.err.Error()
			}
		}
		table.Rows = append(table.Rows, []string{
			o.item.Src, o.item.Type.String(), o.status, size, result,
		})

		if e.Filter != nil && o.status == display.StatusOK && o.item.Type == common.TypeJSON {
			block, good := e.queryBlock(ctx, o)
			output.Blocks = append(output.Blocks, block)
			if !good {
				res.ExitCode = 1
			}
		}
	}

	output.KV = []common.KV{
		{Key: "Items", Value: strconv.Itoa(len(outcomes))},
		{Key: "Loaded", Value: strconv.Itoa(ok)},
		{Key: "Failed", Value: strconv.Itoa(failed)},
		{Key: "Canceled", Value: strconv.Itoa(canceled)},
		{Key: "Transferred", Value: humanize.Bytes(total)},
	}
	if failed > 0 || canceled > 0 {
		res.ExitCode = 1
	}
	return res
}

// queryBlock runs the filter on a JSON result. Results that failed to
// parse are kept as text and are not queried.
func (e *Engine) queryBlock(ctx context.Context, o outcome) (common.Block, bool) {
	block := common.Block{Title: o.item.Src}
	if text, ok := o.result.(string); ok && text == asText(o.raw) {
		block.Body = "error: result is not valid JSON"
		return block, false
	}
	body, err := e.Filter.Format(ctx, o.result)
	if err != nil {
		block.Body = "error: " + err.Error()
		return block, false
	}
	block.Body = body
	return block, true
}

// describe summarizes a materialized result in a table cell.
func describe(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case fmt.Stringer:
		return r.String()
	case map[string]any:
		return fmt.Sprintf("object, %d keys", len(r))
	case []any:
		return fmt.Sprintf("array, %d items", len(r))
	case string:
		return fmt.Sprintf("text, %d chars", len(r))
	case []byte:
		return "binary, " + humanize.Bytes(uint64(len(r)))
	default:
		return fmt.Sprint(r)
	}
}

func asText(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}
