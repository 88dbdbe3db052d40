package templates

import "html/template"

// Placeholder is shown in place of any poster that fails to load.
const Placeholder = "https://via.placeholder.com/300x450/1f2937/6b7280?text=No+Image"

// ParseTemplates parses HTML templates from the embedded filesystem.
// imageURL resolves an image path and size against the image host; templates
// reach it as the "image" function.
func ParseTemplates(imageURL func(path, size string) string, files ...string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"image": imageURL,
		"placeholder": func() string {
			return Placeholder
		},
		// heroImage prefers the backdrop and falls back to the poster.
		"heroImage": func(backdrop, poster string) string {
			if backdrop != "" {
				return imageURL(backdrop, "original")
			}
			return imageURL(poster, "original")
		},
	}

	return template.New("").Funcs(funcMap).ParseFS(FS, files...)
}
