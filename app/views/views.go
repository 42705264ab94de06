// Package views turns composer and scanner state into page models and
// renders them with the embedded HTML templates.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/app/services"
)

//go:embed templates/*.html
var files embed.FS

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"composer", "scanner"} {
		pages[name] = template.Must(template.New("layout.html").ParseFS(files,
			"templates/layout.html", "templates/"+name+".html"))
	}
}

// Render writes page name with model m.
func Render(w io.Writer, name string, m any) error {
	t, ok := pages[name]
	if !ok {
		return fmt.Errorf("views: unknown page %q", name)
	}
	return t.Execute(w, m)
}

// Line is one row of an item list.
type Line struct {
	Index int
	Name  string
	Price string
}

func lines(items []models.OrderItem) []Line {
	out := make([]Line, len(items))
	for i, it := range items {
		out[i] = Line{Index: i, Name: it.Name, Price: models.FormatAmount(it.Price)}
	}
	return out
}

func displayDate(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return day
	}
	return t.Format("Jan 2, 2006")
}

// ── Composer ────────────────────────────────────────────────────────────────

type ComposerPage struct {
	Title        string
	View         services.ComposerView
	Items        []Line
	Total        string
	StudentName  string
	StudentID    string
	Error        string
	Confirmation *ConfirmationModel
}

type ConfirmationModel struct {
	OrderID     string
	QRCode      string
	StudentName string
	StudentID   string
	OrderDate   string
	Items       []Line
	Total       string
	QRImage     template.URL
	QRError     string
	ArchiveURL  string
}

func Composer(st *services.ComposerState) ComposerPage {
	p := ComposerPage{
		Title:       "Canteen Order",
		View:        st.View,
		Items:       lines(st.Items),
		Total:       models.FormatAmount(st.Total),
		StudentName: st.StudentName,
		StudentID:   st.StudentID,
		Error:       st.Error,
	}
	if c := st.Confirmation; st.View == services.ViewConfirmation && c != nil {
		p.Confirmation = &ConfirmationModel{
			OrderID:     c.OrderID,
			QRCode:      c.QRCode,
			StudentName: c.StudentName,
			StudentID:   c.StudentID,
			OrderDate:   displayDate(c.OrderDate),
			Items:       lines(c.Items),
			Total:       models.FormatAmount(c.Total),
			// Rendered by qr.DataURI, never user input.
			QRImage:    template.URL(c.QRImage),
			QRError:    c.QRError,
			ArchiveURL: c.ArchiveURL,
		}
	}
	return p
}

// ── Scanner ─────────────────────────────────────────────────────────────────

type Action string

const (
	ActionFulfill     Action = "fulfill"
	ActionScanAnother Action = "scan_another"
)

type ScannerPage struct {
	Title   string
	View    services.ScannerView
	Code    string
	Error   string
	Notice  string
	Details *DetailsModel
}

// DetailsModel is everything the details view shows about one order.
type DetailsModel struct {
	StudentName string
	StudentID   string
	QRCode      string
	OrderDate   string
	Items       []Line
	Total       string
	Fulfilled   bool
	Heading     string
	Subheading  string
	FulfilledBy string
	FulfilledAt string
	Actions     []Action
}

// Has reports whether a is among the offered actions.
func (d DetailsModel) Has(a Action) bool {
	for _, x := range d.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// Details builds the details model for o; times are shown in loc.
func Details(o *models.Order, loc *time.Location) DetailsModel {
	d := DetailsModel{
		StudentName: o.StudentName,
		StudentID:   o.StudentID,
		QRCode:      o.QRCode,
		OrderDate:   displayDate(o.OrderDate),
		Items:       lines(o.Items),
		Total:       models.FormatAmount(o.TotalAmount),
	}
	if o.IsFulfilled() {
		d.Fulfilled = true
		d.Heading = "Order Already Fulfilled"
		d.FulfilledBy = o.FulfilledByLabel()
		if o.FulfilledAt != nil {
			d.FulfilledAt = o.FulfilledAt.In(loc).Format("Jan 2, 2006 3:04 PM")
		}
		d.Actions = []Action{ActionScanAnother}
		return d
	}
	d.Heading = "Ready to Fulfill"
	d.Subheading = "This order is pending and can be fulfilled now"
	d.Actions = []Action{ActionFulfill, ActionScanAnother}
	return d
}

func Scanner(st *services.ScannerState, loc *time.Location) ScannerPage {
	p := ScannerPage{
		Title:  "Order Scanner",
		View:   st.View,
		Code:   st.Code,
		Error:  st.Error,
		Notice: st.Notice,
	}
	if st.View == services.ViewDetails && st.CurrentOrder != nil {
		d := Details(st.CurrentOrder, loc)
		p.Details = &d
	}
	return p
}
