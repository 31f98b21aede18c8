package export

import "github.com/tidwall/gjson"

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a named dataset; multi-section renderers keep the given order.
type Section struct {
	Name string
	Data Dataset
}

// DatasetFromJSON flattens a JSON array of objects into a dataset with the
// given headers. Missing and null members render as empty cells.
func DatasetFromJSON(raw string, headers []string) Dataset {
	data := Dataset{Headers: headers, Rows: make([]map[string]string, 0)}
	for _, el := range gjson.Parse(raw).Array() {
		row := make(map[string]string, len(headers))
		for _, h := range headers {
			v := el.Get(gjson.Escape(h))
			if !v.Exists() || v.Type == gjson.Null {
				row[h] = ""
				continue
			}
			row[h] = v.String()
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// Record returns a row's cells in header order.
func (d Dataset) Record(row map[string]string) []string {
	record := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		record[i] = row[header]
	}
	return record
}
