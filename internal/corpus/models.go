package corpus

import "strings"

// Document is one article abstract with its title.
type Document struct {
	Abstract string
	Title    string
}

// Record is a raw dataset row. Fields are empty when the column is missing
// or null in the source.
type Record struct {
	Abstract string `json:"abstract"`
	Title    string `json:"title"`
}

// complete reports whether both required fields carry text.
func (r Record) complete() bool {
	return strings.TrimSpace(r.Abstract) != "" && strings.TrimSpace(r.Title) != ""
}
