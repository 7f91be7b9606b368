// Package locale holds the user-facing strings that are not part of the HTML
// templates: the CSV header row, the denial notice, and the export error.
package locale

import (
	"golang.org/x/text/language"
)

// Labels is one set of translated strings.
type Labels struct {
	Tag           language.Tag
	CSVHeader     []string
	DenialMessage string
	CSVError      string
}

var french = Labels{
	Tag:           language.French,
	CSVHeader:     []string{"Nom", "Téléphone", "Sujet de prière", "Date de soumission"},
	DenialMessage: "Vous avez déjà reçu un verset dans les dernières 24 heures. Veuillez réessayer plus tard.",
	CSVError:      "Erreur lors de la génération du CSV",
}

var english = Labels{
	Tag:           language.English,
	CSVHeader:     []string{"Name", "Phone", "Prayer subject", "Submission date"},
	DenialMessage: "You have already received a verse in the last 24 hours. Please try again later.",
	CSVError:      "Error while generating the CSV",
}

// French is first so it wins when nothing matches.
var matcher = language.NewMatcher([]language.Tag{language.French, language.English})

// For returns the labels best matching tag, which may be a BCP 47 tag or an
// Accept-Language value. Unknown or empty input yields French.
func For(tag string) Labels {
	tags, _, err := language.ParseAcceptLanguage(tag)
	if err != nil || len(tags) == 0 {
		return French()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return French()
	}
	if idx == 1 {
		return English()
	}
	return French()
}

// French returns a copy of the French labels.
func French() Labels { return clone(french) }

// English returns a copy of the English labels.
func English() Labels { return clone(english) }

func clone(l Labels) Labels {
	l.CSVHeader = append([]string(nil), l.CSVHeader...)
	return l
}
