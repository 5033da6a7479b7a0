package download

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var sizeUnits = []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"}

var printer = message.NewPrinter(language.English)

// FormatSize renders n bytes with a binary unit prefix, e.g. "1.5KiB".
func FormatSize(n int64) string {
	v := float64(n)
	for _, unit := range sizeUnits {
		if v > -1024 && v < 1024 {
			return printer.Sprintf("%.1f%sB", v, unit)
		}
		v /= 1024
	}
	return printer.Sprintf("%.1fYiB", v)
}
