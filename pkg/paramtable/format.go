package paramtable

import (
	"fmt"
	"math"
)

// Format renders the parameter's current base value for GUI display,
// adapted from the teacher's per-unit FormatParameterValue{DB,Percent,Hz,
// Time,Note} helpers: one small switch here instead of a family of free
// functions, since every parameter already carries its own display hint.
func (p *Param) Format(precision int) string {
	value := p.Base()
	switch p.Info.Display {
	case DisplayDB:
		db := linearToDB(value)
		if math.IsInf(db, -1) {
			return "-∞ dB"
		}
		return fmt.Sprintf("%.*f dB", precision, db)
	case DisplayPercent:
		return fmt.Sprintf("%.*f%%", precision, value*100.0)
	case DisplayHz:
		if value >= 1000.0 {
			return fmt.Sprintf("%.*f kHz", precision, value/1000.0)
		}
		return fmt.Sprintf("%.*f Hz", precision, value)
	case DisplayTime:
		if value < 1.0 {
			return fmt.Sprintf("%.*f ms", precision, value*1000.0)
		}
		return fmt.Sprintf("%.*f s", precision, value)
	case DisplayNote:
		return formatNoteName(int(value))
	default:
		return fmt.Sprintf("%.*f", precision, value)
	}
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func formatNoteName(noteNumber int) string {
	octave := (noteNumber / 12) - 1
	return fmt.Sprintf("%s%d", noteNames[((noteNumber%12)+12)%12], octave)
}

func linearToDB(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(linear)
}
