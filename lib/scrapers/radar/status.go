package radar

import (
	"radarbot-backend/internal/chrono"
	"radarbot-backend/lib/htmlutil"
	"radarbot-backend/lib/textutil"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
	StateUnknown State = "unknown"
)

const (
	absentMarker  = "No hay ninguna ubicación planificada para hoy."
	presentMarker = "el radar móvil estará operando en las siguientes ubicaciones"

	// the page is edited by hand, a couple of changed letters in the present
	// marker should still match. the absent marker is matched exactly since it
	// only differs from other days by its last word.
	markerSimilarity = 0.95
)

// Status is what the radar page says about a single day.
type Status struct {
	State     State    `json:"state"`
	Locations []string `json:"locations,omitempty"`
	// Date is the day the status refers to, formatted dd/mm/yyyy.
	Date string `json:"date"`
}

// HasRadar is true only when there is at least one place to warn about.
func (s Status) HasRadar() bool {
	return s.State == StatePresent && len(s.Locations) > 0
}

var dateRegex = regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`)

// ParseStatus classifies the radar page for the day of `today`.
func ParseStatus(doc *goquery.Document, today time.Time) Status {
	day := chrono.FormatDay(today)
	result := Status{State: StateUnknown, Date: day}

	doc.Find(".span12").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		paragraphs := block.Find("p")
		for i := 0; i < paragraphs.Length(); i++ {
			text := htmlutil.SelectionText(paragraphs.Eq(i))

			if textutil.Contains(text, absentMarker) {
				result.State = StateAbsent
				return false
			}

			if !textutil.FuzzyContains(text, presentMarker, markerSimilarity) {
				continue
			}
			if date := dateRegex.FindString(text); date != "" && date != day {
				continue
			}
			if i+1 >= paragraphs.Length() {
				continue
			}

			result.State = StatePresent
			result.Locations = locations(paragraphs.Eq(i + 1))
			return false
		}
		return true
	})

	return result
}

func locations(paragraph *goquery.Selection) []string {
	var out []string
	paragraph.Find(".label").Each(func(_ int, label *goquery.Selection) {
		text := htmlutil.SelectionText(label)
		if text != "" {
			out = append(out, text)
		}
	})
	return out
}
