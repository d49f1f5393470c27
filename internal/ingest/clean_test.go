package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapses whitespace", "  one\n\n two\tthree  ", "one two three"},
		{"drops boilerplate lines", "Navigation: Home | Docs\nReal content here.\nFooter © 2025", "Real content here."},
		{"case insensitive", "HEADER menu\nbody", "body"},
		{"keeps words that only start with a label", "Headers are sent with every request.", "Headers are sent with every request."},
		{"label mid-line is kept", "See the footer for links", "See the footer for links"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestExtractHTML(t *testing.T) {
	raw := `<!doctype html>
<html>
<head><title> Export Guide </title><style>body { color: red }</style></head>
<body>
  <nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
  <h1>Exporting</h1>
  <p>Choose <b>JSON</b> or CSV.</p>
  <script>track()</script>
  <footer>Copyright</footer>
</body>
</html>`

	title, text := ExtractHTML(raw)

	assert.Equal(t, "Export Guide", title)
	assert.Equal(t, "Exporting Choose JSON or CSV.", CleanText(text))
}

func TestTextFromBody(t *testing.T) {
	assert.Equal(t, "plain text", textFromBody("plain   text"))
	assert.Equal(t, "Hello world", textFromBody("<div>Hello <i>world</i></div>"))
}
