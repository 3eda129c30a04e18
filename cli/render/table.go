package render

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// column is one rendered struct field.
type column struct {
	header string
	index  int
}

// structColumns lists the exported fields of t named by their json tag.
// Fields tagged json:"-" are left out.
func structColumns(t reflect.Type) []column {
	var cols []column
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.ToLower(f.Name)
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		cols = append(cols, column{header: name, index: i})
	}
	return cols
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func (r *Renderer) renderTable(data any) error {
	v := indirect(reflect.ValueOf(data))
	if v.Kind() == reflect.Slice {
		return r.renderRows(v)
	}
	return r.renderRecord(v, data)
}

// renderRows prints one line per element under a header row. Columns are
// aligned on plain text and the header is styled afterwards.
func (r *Renderer) renderRows(v reflect.Value) error {
	if v.Len() == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}

	var headers []string
	var cells func(reflect.Value) []string

	first := indirect(v.Index(0))
	switch first.Kind() {
	case reflect.Struct:
		cols := structColumns(first.Type())
		for _, c := range cols {
			headers = append(headers, c.header)
		}
		cells = func(row reflect.Value) []string {
			out := make([]string, len(cols))
			if row = indirect(row); !row.IsValid() {
				return out
			}
			for i, c := range cols {
				out[i] = formatCell(c.header, row.Field(c.index))
			}
			return out
		}
	case reflect.Map:
		keys := sortedKeys(first)
		for _, k := range keys {
			headers = append(headers, fmt.Sprint(k.Interface()))
		}
		cells = func(row reflect.Value) []string {
			out := make([]string, len(keys))
			if row = indirect(row); !row.IsValid() {
				return out
			}
			for i, k := range keys {
				out[i] = formatCell(headers[i], row.MapIndex(k))
			}
			return out
		}
	default:
		headers = []string{"value"}
		cells = func(row reflect.Value) []string {
			return []string{formatCell("value", row)}
		}
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for i := range v.Len() {
		fmt.Fprintln(w, strings.Join(cells(v.Index(i)), "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	header, rest, _ := strings.Cut(buf.String(), "\n")
	if !r.noColor {
		header = headerStyle.Render(header)
	}
	_, err := fmt.Fprint(r.out, header+"\n"+rest)
	return err
}

// renderRecord prints a struct or map as "key: value" lines.
func (r *Renderer) renderRecord(v reflect.Value, data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	switch v.Kind() {
	case reflect.Struct:
		for _, c := range structColumns(v.Type()) {
			fmt.Fprintf(w, "%s:\t%s\n", c.header, formatCell(c.header, v.Field(c.index)))
		}
	case reflect.Map:
		for _, key := range sortedKeys(v) {
			name := fmt.Sprint(key.Interface())
			fmt.Fprintf(w, "%s:\t%s\n", name, formatCell(name, v.MapIndex(key)))
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
	return w.Flush()
}

// formatCell renders one value. Byte counts (size, bytes_*) are shown in
// binary units.
func formatCell(name string, v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}

	if t, ok := v.Interface().(time.Time); ok {
		return t.Format(time.RFC3339)
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	case reflect.Int, reflect.Int32, reflect.Int64:
		if isByteColumn(name) {
			return FormatBytes(v.Int())
		}
	}
	return fmt.Sprint(v.Interface())
}

func isByteColumn(name string) bool {
	return name == "size" || strings.HasPrefix(name, "bytes_")
}

// FormatBytes renders n as a human-readable size ("1.5 KiB").
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit && n > -unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit || m <= -unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// sortedKeys returns map keys ordered by their string form.
func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
