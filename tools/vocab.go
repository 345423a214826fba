package tools

import (
	"fmt"
	"io"

	"github.com/Comcast/gridbus/protocol"

	md "github.com/russross/blackfriday/v2"
)

// RenderVocabHTML writes an HTML reference page for the command
// vocabulary.  Command descriptions are markdown (see protocol.Docs).
func RenderVocabHTML(out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="vocab">`)
	f(`<h1>Command vocabulary</h1>`)
	f(`<table>`)

	for _, name := range protocol.Names() {
		doc := protocol.Docs[name]
		f(`<tr class="command"><td><code id="%s">%s</code></td><td>`, name, name)
		if doc != "" {
			f(`<div class="commandDoc doc">%s</div>`, md.Run([]byte(doc)))
		}
		f(`</td></tr>`)
	}

	f(`</table>`)
	f(`</div>`)

	return nil
}

// RenderVocabPage wraps RenderVocabHTML in a minimal standalone page.
func RenderVocabPage(out io.Writer) error {
	fmt.Fprintf(out, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>gridbus commands</title></head>
<body>
`)
	if err := RenderVocabHTML(out); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "</body>\n</html>\n")
	return err
}
