package hulk

import "strings"

var mediaTypes = map[string]string{
	"text": "application/vnd.github.v3.text+json",
	"html": "application/vnd.github.v3.html+json",
	"full": "application/vnd.github.v3.full+json",
	"raw":  "application/vnd.github.v3.raw+json",
}

// MediaType maps a short body format name (text, html, full, raw; any case)
// to its Accept header. Other values pass through unchanged.
func MediaType(name string) string {
	if mt, ok := mediaTypes[strings.ToLower(name)]; ok {
		return mt
	}
	return name
}
