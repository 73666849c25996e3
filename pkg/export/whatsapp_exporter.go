package export

import (
	"fmt"
	"strings"
)

// WhatsAppExporter renders a roster dataset as a plain-text message ready to
// paste into a group chat.
type WhatsAppExporter struct{}

// NewWhatsAppExporter builds a WhatsApp text exporter.
func NewWhatsAppExporter() *WhatsAppExporter {
	return &WhatsAppExporter{}
}

// Section groups lines under a date heading.
type Section struct {
	Heading string
	Lines   []string
}

// Render produces the message body. Headings are bolded with the *text*
// convention WhatsApp understands.
func (e *WhatsAppExporter) Render(title, subtitle string, sections []Section) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "*%s*\n", title)
	}
	if subtitle != "" {
		fmt.Fprintf(&b, "_%s_\n", subtitle)
	}
	for _, section := range sections {
		b.WriteString("\n")
		fmt.Fprintf(&b, "*%s*\n", section.Heading)
		for _, line := range section.Lines {
			fmt.Fprintf(&b, "%s\n", line)
		}
	}
	return b.String()
}
