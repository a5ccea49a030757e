package pipeline

import (
	"strings"

	"github.com/minervaai/minerva/internal/index"
	"github.com/minervaai/minerva/internal/parents"
)

const contextSeparator = "---"

// BuildContext expands each selected fragment to its parent window and
// concatenates the evidence block: parent text, child text, separator, in
// selection order. A missing parent contributes empty text; it never fails
// the request. Order is part of the generation contract and must not change.
func BuildContext(store *parents.Store, selected []index.Match) string {
	var b strings.Builder
	for _, m := range selected {
		parentText := ""
		if store != nil {
			if p, ok := store.Get(m.ParentID); ok {
				parentText = p.Text
			}
		}
		b.WriteString(parentText)
		b.WriteString("\n")
		b.WriteString(m.Text)
		b.WriteString("\n")
		b.WriteString(contextSeparator)
		b.WriteString("\n")
	}
	return b.String()
}
