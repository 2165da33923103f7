// Package render prints decoded responses, target sets and metrics for the CLI.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bndr/gotabulate"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/samvad-hq/endpointkit/pkg/endpoint"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

const maxCellSize = 85

// Write renders v to w in format.
func Write(w io.Writer, format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return JSON(w, v)
	case FormatTable:
		_, err := fmt.Fprintln(w, Table(v))
		return err
	default:
		return fmt.Errorf("unknown output format %q (want json or table)", format)
	}
}

// JSON writes v indented with two spaces.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders generic decoded JSON. Arrays of objects become one row per
// element; an object becomes an attr/value table; anything else is printed
// as compact JSON.
func Table(v any) string {
	switch val := v.(type) {
	case []any:
		return arrayTable(val)
	case map[string]any:
		return objectTable(val)
	default:
		return cell(v)
	}
}

func arrayTable(items []any) string {
	if len(items) == 0 {
		return "[]"
	}
	var headers []string
	seen := map[string]bool{}
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return listTable(items)
		}
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sortHeaders(headers)

	rows := make([][]any, 0, len(items))
	for _, it := range items {
		obj := it.(map[string]any)
		row := make([]any, len(headers))
		for i, h := range headers {
			if val, ok := obj[h]; ok {
				row[i] = cell(val)
			} else {
				row[i] = ""
			}
		}
		rows = append(rows, row)
	}
	return grid(headers, rows)
}

func listTable(items []any) string {
	rows := make([][]any, 0, len(items))
	for i, it := range items {
		rows = append(rows, []any{strconv.Itoa(i), cell(it)})
	}
	return grid([]string{"index", "value"}, rows)
}

func objectTable(obj map[string]any) string {
	if len(obj) == 0 {
		return "<>"
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sortHeaders(keys)
	rows := make([][]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []any{k, cell(obj[k])})
	}
	return grid([]string{"attr", "value"}, rows)
}

// sortHeaders orders keys alphabetically with "id" and "name" first.
func sortHeaders(keys []string) {
	rank := func(k string) int {
		switch k {
		case "id":
			return 0
		case "name":
			return 1
		default:
			return 2
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func grid(headers []string, rows [][]any) string {
	t := gotabulate.Create(rows)
	t.SetHeaders(headers)
	t.SetAlign("left")
	t.SetWrapStrings(true)
	t.SetMaxCellSize(maxCellSize)
	return t.Render("grid")
}

// Specs renders a target set.
func Specs(specs []endpoint.Spec) string {
	if len(specs) == 0 {
		return "no targets configured"
	}
	rows := make([][]any, 0, len(specs))
	for _, s := range specs {
		shape := "one"
		if s.Many {
			shape = "many"
		}
		rows = append(rows, []any{s.Name, strings.ToUpper(s.Method), s.Path, s.FieldPath, shape, s.Description})
	}
	return grid([]string{"name", "method", "path", "field", "result", "description"}, rows)
}

// Metrics renders the counter and histogram samples gathered from g.
func Metrics(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	var rows [][]any
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := labelString(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				rows = append(rows, []any{mf.GetName(), labels, formatFloat(m.GetCounter().GetValue())})
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				rows = append(rows,
					[]any{mf.GetName() + "_count", labels, strconv.FormatUint(h.GetSampleCount(), 10)},
					[]any{mf.GetName() + "_sum", labels, formatFloat(h.GetSampleSum())},
				)
			case dto.MetricType_GAUGE:
				rows = append(rows, []any{mf.GetName(), labels, formatFloat(m.GetGauge().GetValue())})
			}
		}
	}
	if len(rows) == 0 {
		return "no metrics recorded", nil
	}
	return grid([]string{"metric", "labels", "value"}, rows), nil
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
