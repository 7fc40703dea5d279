package web

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

func itoa(value int) string {
	return strconv.Itoa(value)
}

// formatValue renders a scale value the way voters read it: 0.5, 1, 13.
func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func sessionPath(id string) string {
	return "/sessions/" + url.PathEscape(id)
}
