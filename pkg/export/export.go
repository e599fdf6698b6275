package export

// EmptyPlaceholder fills a table that has no rows.
const EmptyPlaceholder = "No scores available"

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Document is a titled dataset. Meta lines are printed under the title by
// renderers that support a preamble.
type Document struct {
	Title string
	Meta  []string
	Data  Dataset
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}
