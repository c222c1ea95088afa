package shipping

import (
	"fmt"
	"strings"
	"text/template"
)

// RenderTrackingURL fills a Parcel Service url_reference such as
// "https://carrier.example/track?id={{ tracking_number }}".
func RenderTrackingURL(urlReference, trackingNumber string) (string, error) {
	if urlReference == "" {
		return "", nil
	}

	tmpl, err := template.New("tracking_url").
		Funcs(template.FuncMap{
			"tracking_number": func() string { return trackingNumber },
		}).
		Parse(urlReference)
	if err != nil {
		return "", fmt.Errorf("invalid tracking url template: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, nil); err != nil {
		return "", fmt.Errorf("failed to render tracking url: %w", err)
	}
	return b.String(), nil
}
