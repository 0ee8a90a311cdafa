package invite

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/event-planner/internal/model"
)

// borderStyles maps border_style_id to a CSS border. Unknown ids fall back to 1.
var borderStyles = map[int]string{
	1: "6px double",
	2: "3px solid",
	3: "4px dashed",
	4: "5px dotted",
	5: "8px ridge",
}

var pageTmpl = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
@page { size: A5; margin: 0; }
body { margin: 0; background: {{.Style.Background.Color}}; font-family: {{.Style.Font.Body}}, sans-serif; color: {{.Style.ColorScheme.Primary}}; }
.card { margin: 12mm; padding: 10mm; border: {{.Border}} {{.Style.ColorScheme.Accent}}; text-align: center; min-height: 160mm; }
h1 { font-family: {{.Style.Font.Heading}}, serif; font-size: 28pt; margin: 6mm 0 2mm; }
.type { text-transform: uppercase; letter-spacing: 3px; color: {{.Style.ColorScheme.Accent}}; }
.text { margin: 8mm 0; font-size: 13pt; line-height: 1.5; }
.when, .where { background: {{.Style.ColorScheme.Secondary}}; padding: 3mm; margin: 3mm 0; }
.small { font-size: 10pt; margin-top: 6mm; }
</style></head><body><div class="card">
<div class="type">{{.Data.EventType}}</div>
<h1>{{.Data.EventName}}</h1>
<div class="text">{{.Data.Text}}</div>
<div class="when">{{.Data.EventDate}}{{if .Data.EventTime}} &middot; {{.Data.EventTime}}{{end}}</div>
{{if or .Data.VenueName .Data.VenueAddress}}<div class="where">{{.Data.VenueName}}{{if .Data.VenueAddress}}<br>{{.Data.VenueAddress}}{{end}}</div>{{end}}
{{if .Data.HostName}}<div class="small">Hosted by {{.Data.HostName}}</div>{{end}}
{{if .Data.RSVPContact}}<div class="small">RSVP: {{.Data.RSVPContact}}</div>{{end}}
{{if .Data.SpecialInstructions}}<div class="small">{{.Data.SpecialInstructions}}</div>{{end}}
</div></body></html>`))

// RenderHTML lays out the invitation page. All user text is escaped.
func RenderHTML(data model.InvitationData, style model.InvitationStyle) (string, error) {
	border, ok := borderStyles[style.BorderStyleID]
	if !ok {
		border = borderStyles[1]
	}
	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Data   model.InvitationData
		Style  model.InvitationStyle
		Border string
	}{data, style, border})
	if err != nil {
		return "", eris.Wrap(err, "invite: execute template")
	}
	return buf.String(), nil
}

// ChromeRenderer prints the invitation page to PDF with headless Chrome.
type ChromeRenderer struct {
	dir     string
	timeout time.Duration
}

// NewChromeRenderer writes PDFs into dir, which is created if missing.
func NewChromeRenderer(dir string, timeout time.Duration) *ChromeRenderer {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "event-planner", "invitations")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeRenderer{dir: dir, timeout: timeout}
}

// Render implements Renderer.
func (r *ChromeRenderer) Render(ctx context.Context, data model.InvitationData, style model.InvitationStyle) (string, error) {
	html, err := RenderHTML(data, style)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var pdf []byte
	err = chromedp.Run(bctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", eris.Wrap(err, "invite: print pdf")
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "invite: create output dir")
	}
	name := data.ID
	if name == "" {
		name = uuid.New().String()
	}
	path := filepath.Join(r.dir, "invitation-"+filepath.Base(name)+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", eris.Wrap(err, "invite: write pdf")
	}
	return path, nil
}
