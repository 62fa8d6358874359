// Package prompt builds the natural-language instruction sent to the
// inference backend. Composition is pure: no I/O, and the clock used
// for age calculation is passed in by the caller.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

// outputInstruction anchors where the personalization clause is
// spliced: immediately before the length instruction, so the seeker's
// context reads as part of the reading brief rather than an appendix.
const outputInstruction = "Write 200–300 words"

var templates = map[domain.ReadingType]string{
	domain.ReadingTypeFace: `Greetings, wise seeker. As a master of the ancient art of face reading, I shall read the destiny written upon your face.

Study this face with reverence, examining the forehead for early life patterns, the eyes for spirit and wisdom, the nose for wealth and ambition, the mouth for relationships and emotion, and the chin for stability and future promise. Each feature tells a story of your journey through this world.

Write 200–300 words in a calm, elegant tone that flows like poetry yet remains structured and meaningful. Let your words carry the weight of ancient wisdom while speaking directly to this seeker's soul. Conclude with gentle guidance for harmony and prosperity.`,

	domain.ReadingTypePalm: `Welcome, dear seeker. I am a traditional palm reader, guided by centuries of ancient wisdom passed down through generations. Your hand holds the map of your destiny, written in lines that speak of your deepest truths.

Examine this hand with care and reverence. Read the heart line to understand matters of love and emotion, the head line for intellect and decision-making, the life line for vitality and life force, and the fate line for career and purpose. See how these lines intertwine to reveal the beautiful complexity of your journey.

Write 200–300 words with a confident, compassionate tone that honors both the seeker and the ancient art. Let your reading flow like a gentle stream of wisdom, offering hope and insight about balance and fulfillment. Conclude with a message of transformation and growth.`,

	domain.ReadingTypeCoffee: `Welcome, beloved seeker. I am a master of coffee fortune telling, reading the mystical symbols that dance within your cup with the intuition and tradition of my ancestors. Each pattern tells a story written in the language of destiny.

Read the story revealed by these sacred grounds: the bottom speaks of your past and foundation, the middle reveals your present moment and current energies, while the top and rim whisper of your future path. Look for the symbols that call to you—birds bringing messages, eyes offering protection, hearts speaking of love, paths showing direction.

Write 200–300 words like a poetic story that flows naturally from your heart. Let your words be warm and narrative, as if you're sharing wisdom with a dear friend. Conclude with a message of hope and emotional clarity that illuminates the seeker's path forward.`,

	domain.ReadingTypeTarot: `Welcome, curious seeker. I am a reader of the tarot, keeper of the seventy-eight doors through which destiny speaks in symbol and archetype. The cards drawn for you today carry messages chosen by fate itself.

Draw three cards for this seeker: the first revealing the roots of their past, the second illuminating the energies of their present, and the third opening a window onto the path ahead. Interpret each card's imagery and let their conversation with one another shape the reading.

Write 200–300 words in a vivid, intimate tone that makes the cards come alive. Let each card's meaning unfold naturally into the next, weaving a single story rather than three separate fortunes. Conclude with clear, encouraging counsel the seeker can carry with them.`,
}

var traditions = map[domain.CulturalOrigin]string{
	domain.OriginChinese:       "the ancient Chinese tradition, honoring the Five Elements and the harmony of Yin and Yang",
	domain.OriginMiddleEastern: "the Middle Eastern tradition, carrying the wisdom of generations of desert mystics",
	domain.OriginEuropean:      "the old European tradition, steeped in the symbolism of the medieval mystics",
	domain.OriginIndian:        "the Indian tradition, guided by the wisdom of Jyotisha and the rhythm of the cosmos",
	domain.OriginAfrican:       "the African tradition, rooted in ancestral wisdom and the voice of the elders",
}

// Compose builds the full instruction for a reading. Deterministic for
// the same inputs and clock.
func Compose(readingType domain.ReadingType, origin domain.CulturalOrigin, profile domain.BirthProfile, now time.Time) string {
	base, ok := templates[readingType]
	if !ok {
		base = templates[domain.ReadingTypeFace]
	}

	clauses := []string{originClause(origin)}
	if p := personalization(profile, now); p != "" {
		clauses = append(clauses, p)
	}

	insert := strings.Join(clauses, "\n\n")
	return strings.Replace(base, outputInstruction, insert+"\n\n"+outputInstruction, 1)
}

func originClause(origin domain.CulturalOrigin) string {
	tradition, ok := traditions[origin]
	if !ok {
		tradition = traditions[domain.OriginChinese]
	}
	return fmt.Sprintf("Root this reading in %s.", tradition)
}

// personalization renders the seeker's birth context, or empty if the
// profile carries nothing.
func personalization(profile domain.BirthProfile, now time.Time) string {
	if profile.IsEmpty() {
		return ""
	}

	location := profile.Location()
	if location == "" {
		location = "a sacred place"
	}

	var b strings.Builder
	b.WriteString("This seeker was born in ")
	b.WriteString(location)
	if profile.BirthTime != "" {
		b.WriteString(" at the sacred hour of ")
		b.WriteString(profile.BirthTime)
	}
	if age := profile.Age(now); age >= 0 {
		fmt.Fprintf(&b, ", now %d years of life experience", age)
	}
	b.WriteString(", carrying the unique energy of that moment and place. Let this birth essence guide your interpretation, weaving their personal story into the ancient wisdom you share.")
	return b.String()
}
