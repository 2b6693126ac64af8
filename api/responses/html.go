package responses

import (
	"html/template"
	"log"
	"net/http"
)

// Tone selects the accent colour of a status page.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
	ToneError   Tone = "error"
)

// Page is a self-contained HTML status page shown to someone who followed an
// e-mail link.
type Page struct {
	Title   string
	Heading string
	Message string
	Tone    Tone
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  body { margin: 0; font-family: Georgia, serif; background: #fdf6ec; color: #4a2c17; }
  main { max-width: 520px; margin: 12vh auto; padding: 32px; background: #fff; border-radius: 12px; box-shadow: 0 4px 18px rgba(74, 44, 23, 0.12); text-align: center; }
  h1 { margin-top: 0; color: {{.Accent}}; }
  p { line-height: 1.5; }
</style>
</head>
<body>
<main>
  <h1>{{.Heading}}</h1>
  <p>{{.Message}}</p>
</main>
</body>
</html>
`))

type pageView struct {
	Page
	Accent template.CSS
}

func accentFor(tone Tone) template.CSS {
	switch tone {
	case ToneSuccess:
		return "#2e7d32"
	case ToneError:
		return "#c62828"
	default:
		return "#8d5524"
	}
}

// WriteHTML renders page with the given status code.
func WriteHTML(w http.ResponseWriter, status int, page Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, pageView{Page: page, Accent: accentFor(page.Tone)}); err != nil {
		log.Printf(`{"level":"error","msg":"failed to render page","err":"%v"}`, err)
	}
}
