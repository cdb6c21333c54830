package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"oprdesk/pkg/domain"
)

//go:embed templates/report.html.tmpl
var templatesFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	ParseFS(templatesFS, "templates/report.html.tmpl"))

// Layout carries the letterhead printed on every document.
type Layout struct {
	Organisation string `yaml:"organisation"`
	Motto        string `yaml:"motto"`
	LogoURL      string `yaml:"logo_url"`
}

// DefaultLayout is the school letterhead.
var DefaultLayout = Layout{
	Organisation: "SMA AL EHYA AL KARIM",
	Motto:        "INTEGRITI • PROFESIONALISME • KECEMERLANGAN",
}

type layoutData struct {
	Report       domain.Report
	Organisation string
	Motto        string
	LogoURL      template.URL
	Date         string
	Images       []template.URL
	ArchiveCode  string
	Timestamp    string
}

var malayMonths = [...]string{"Januari", "Februari", "Mac", "April", "Mei", "Jun", "Julai", "Ogos", "September", "Oktober", "November", "Disember"}

// malayDate renders YYYY-MM-DD as "02 Januari 2006". Unparseable input is returned as is.
func malayDate(s string) string {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%02d %s %d", d.Day(), malayMonths[d.Month()-1], d.Year())
}

// RenderHTML renders the one-page layout for report.
func RenderHTML(report domain.Report, layout Layout) ([]byte, error) {
	data := layoutData{
		Report:       report,
		Organisation: layout.Organisation,
		Motto:        layout.Motto,
		Date:         malayDate(report.Date),
		ArchiveCode:  fmt.Sprintf("OPR-%s-%s", report.ID, report.CreatedAt.Format("0601")),
		Timestamp:    report.CreatedAt.Format("02/01/2006 15:04"),
	}
	if strings.HasPrefix(layout.LogoURL, "https://") || strings.HasPrefix(layout.LogoURL, "data:image/") {
		data.LogoURL = template.URL(layout.LogoURL)
	}
	for _, img := range report.Images {
		// Only encoded images are trusted as URLs; anything else is dropped.
		if strings.HasPrefix(img, "data:image/") {
			data.Images = append(data.Images, template.URL(img))
		}
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render layout: %w", err)
	}
	return buf.Bytes(), nil
}
