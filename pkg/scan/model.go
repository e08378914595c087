package scan

import (
	"strings"
	"sync"
)

// CorrectionModel holds the per-language statistical tables used by the
// contextual corrector: known word pairs and triples from journal prose, and
// a frequency-ordered vocabulary. Models are built once and never mutated, so
// they are safe for unlimited concurrent readers.
type CorrectionModel struct {
	Lang       string
	Bigrams    []string // canonical lowercase "first second"
	Trigrams   []string // canonical lowercase "first second third"
	Vocabulary []string // most frequent first; earlier entries win distance ties
}

var (
	modelOnce    sync.Once
	englishTable *CorrectionModel
	spanishTable *CorrectionModel
)

func loadModels() {
	englishTable = &CorrectionModel{
		Lang: "en",
		Bigrams: []string{
			"woke up", "went to", "fell asleep", "slept for", "hours of",
			"of sleep", "felt like", "felt good", "felt tired", "this morning",
			"last night", "to bed", "for breakfast", "for lunch", "for dinner",
			"a walk", "the gym", "my mood", "mood today", "so tired",
			"really happy", "a bit", "kind of", "worked out", "stayed up",
			"calmed down", "stressed out", "took a", "had a", "with friends",
		},
		Trigrams: []string{
			"hours of sleep", "went to bed", "went for a", "woke up early",
			"woke up late", "could not sleep", "went to the", "out of bed",
			"in the morning", "in the evening", "a good day", "a rough day",
			"took a walk", "took a nap", "had a great",
		},
		Vocabulary: []string{
			"the", "and", "today", "sleep", "slept", "mood", "hours", "felt",
			"feel", "good", "tired", "happy", "morning", "night", "woke",
			"went", "walk", "walking", "running", "reading", "writing",
			"yoga", "gym", "workout", "exercise", "meditation", "breakfast",
			"lunch", "dinner", "coffee", "work", "friends", "family",
			"stressed", "anxious", "calm", "relaxed", "energetic", "exhausted",
			"great", "rough", "early", "late", "activities", "activity",
			"journal", "dream", "dreams", "nap", "rest", "rested", "awake",
			"bed", "evening", "afternoon", "weather", "sunny", "rainy",
			"grateful", "thankful", "productive", "lazy", "motivated",
			"headache", "sore", "healthy", "swimming", "cycling", "hiking",
			"cooking", "cleaning", "shopping", "stretching", "studying",
			"music", "movie", "podcast", "garden", "gardening",
		},
	}
	spanishTable = &CorrectionModel{
		Lang: "es",
		Bigrams: []string{
			"me desperté", "me levanté", "me dormí", "horas de", "de sueño",
			"me sentí", "muy bien", "muy cansado", "esta mañana", "esta noche",
			"anoche dormí", "por la", "la mañana", "la tarde", "la noche",
			"un paseo", "el gimnasio", "mi estado", "estado de", "de ánimo",
			"un poco", "buen día", "mal día", "con amigos", "en casa",
		},
		Trigrams: []string{
			"horas de sueño", "estado de ánimo", "me desperté temprano",
			"me desperté tarde", "por la mañana", "por la noche",
			"no pude dormir", "fui al gimnasio", "salí a caminar",
			"un buen día", "un mal día",
		},
		Vocabulary: []string{
			"hoy", "dormí", "sueño", "ánimo", "horas", "sentí", "bien",
			"cansado", "cansada", "feliz", "mañana", "noche", "tarde",
			"caminar", "caminata", "correr", "leer", "lectura", "escribir",
			"yoga", "gimnasio", "ejercicio", "meditación", "desayuno",
			"almuerzo", "cena", "café", "trabajo", "amigos", "familia",
			"estresado", "ansioso", "tranquilo", "relajado", "agotado",
			"temprano", "actividades", "actividad", "diario", "siesta",
			"descanso", "despierto", "cama", "paseo", "agradecido",
			"productivo", "motivado", "nadar", "cocinar", "estudiar",
			"música", "película", "jardín",
		},
	}
}

// modelForText picks the correction model by script inspection: Spanish
// diacritics or inverted punctuation select the Spanish tables, everything
// else falls back to English.
func modelForText(text string) *CorrectionModel {
	modelOnce.Do(loadModels)
	if strings.ContainsAny(text, "áéíóúüñÁÉÍÓÚÜÑ¿¡") {
		return spanishTable
	}
	return englishTable
}
