package radar

import (
	"os"
	"path/filepath"
	"radarbot-backend/internal/chrono"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2024, 10, 14, 8, 0, 0, 0, chrono.Madrid())

func loadFixture(t *testing.T, name string) *goquery.Document {
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func parseString(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseStatusFixtures(t *testing.T) {
	cases := []struct {
		fixture  string
		expected Status
	}{
		{
			fixture: "present.html",
			expected: Status{
				State:     StatePresent,
				Locations: []string{"Avenida de Tolosa", "Paseo de Colón"},
				Date:      "14/10/2024",
			},
		},
		{
			fixture:  "absent.html",
			expected: Status{State: StateAbsent, Date: "14/10/2024"},
		},
		{
			fixture:  "stale.html",
			expected: Status{State: StateUnknown, Date: "14/10/2024"},
		},
	}

	for _, c := range cases {
		t.Run(c.fixture, func(t *testing.T) {
			status := ParseStatus(loadFixture(t, c.fixture), testDay)
			if diff := cmp.Diff(c.expected, status); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		state    State
		hasRadar bool
	}{
		{
			name:  "no content",
			html:  `<div class="container"><p>Mantenimiento</p></div>`,
			state: StateUnknown,
		},
		{
			name:  "marker outside span12",
			html:  `<div><p>No hay ninguna ubicación planificada para hoy.</p></div>`,
			state: StateUnknown,
		},
		{
			name:  "accents and case",
			html:  `<div class="span12"><p>NO HAY NINGUNA UBICACION PLANIFICADA PARA HOY.</p></div>`,
			state: StateAbsent,
		},
		{
			name:  "absent tomorrow",
			html:  `<div class="span12"><p>No hay ninguna ubicación planificada para mañana.</p></div>`,
			state: StateUnknown,
		},
		{
			name:  "absent another weekday",
			html:  `<div class="span12"><p>No hay ninguna ubicación planificada para el lunes.</p></div>`,
			state: StateUnknown,
		},
		{
			name:     "small copy edit",
			html:     `<div class="span12"><p>El radar movil estara operando en las siguientes ubicacione:</p><p><span class="label">Morlans</span></p></div>`,
			state:    StatePresent,
			hasRadar: true,
		},
		{
			name:  "present without following paragraph",
			html:  `<div class="span12"><p>el radar móvil estará operando en las siguientes ubicaciones</p></div>`,
			state: StateUnknown,
		},
		{
			name:     "present without labels",
			html:     `<div class="span12"><p>el radar móvil estará operando en las siguientes ubicaciones</p><p>-</p></div>`,
			state:    StatePresent,
			hasRadar: false,
		},
		{
			name: "second block",
			html: `<div class="span12"><p>Información general</p></div>
<div class="span12"><p>Hoy, 14/10/2024, el radar móvil estará operando en las siguientes ubicaciones:</p><p><span class="label">Amara</span></p></div>`,
			state:    StatePresent,
			hasRadar: true,
		},
		{
			name: "first match wins",
			html: `<div class="span12"><p>No hay ninguna ubicación planificada para hoy.</p>
<p>el radar móvil estará operando en las siguientes ubicaciones</p><p><span class="label">Amara</span></p></div>`,
			state: StateAbsent,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			status := ParseStatus(parseString(t, c.html), testDay)
			require.Equal(t, c.state, status.State)
			require.Equal(t, c.hasRadar, status.HasRadar())
			require.Equal(t, "14/10/2024", status.Date)
		})
	}
}
