package chrono

import (
	"time"
	_ "time/tzdata"
)

var madrid *time.Location

func init() {
	var err error
	madrid, err = time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(err)
	}
}

// Madrid returns a [*time.Location] for Europe/Madrid, the time zone the radar page publishes dates in.
func Madrid() *time.Location {
	return madrid
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time, the timezone of the time will default to Europe/Madrid.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(madrid)
}

// FixedTime is a TimeAPI that always returns the same instant.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(madrid)
}

// FormatDay formats a time the way the radar page writes dates (dd/mm/yyyy).
func FormatDay(t time.Time) string {
	return t.In(madrid).Format("02/01/2006")
}
