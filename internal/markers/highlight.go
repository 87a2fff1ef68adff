package markers

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlight writes a diff excerpt to w, coloured for a 256-colour terminal
// when color is set.
func Highlight(w io.Writer, text string, color bool) error {
	if !color {
		_, err := io.WriteString(w, text)
		return err
	}
	lexer := lexers.Get("diff")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	style := styles.Get("github-dark")
	if style == nil {
		style = styles.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		_, werr := io.WriteString(w, text)
		return werr
	}
	return formatters.Get("terminal256").Format(w, style, iterator)
}
