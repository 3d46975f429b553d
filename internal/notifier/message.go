package notifier

import (
	"fmt"
	"radarbot-backend/lib/scrapers/radar"
	"strings"
)

const (
	messageUnknown = "⚠️ *Error al obtener información de los radares.*\n\n🚨 No se pudo verificar si hay radares móviles."
	messageAbsent  = "No hay radares móviles planificados para hoy."
	messagePresent = "🚨 El radar móvil estará operando en las siguientes ubicaciones:\n\n"
	messageFooter  = "\n\n🚗💨 ¡Cuidado con los naranjitos! 🚓"
)

// ComposeMessage renders the Markdown text sent to users for a status.
// A "present" status without locations reads as absent, the page announced
// the day but listed no places.
func ComposeMessage(status radar.Status) string {
	switch {
	case status.HasRadar():
		lines := make([]string, len(status.Locations))
		for i, loc := range status.Locations {
			lines[i] = fmt.Sprintf("   •  *%s*", loc)
		}
		return messagePresent + strings.Join(lines, "\n") + messageFooter
	case status.State == radar.StateAbsent, status.State == radar.StatePresent:
		return messageAbsent
	default:
		return messageUnknown
	}
}
