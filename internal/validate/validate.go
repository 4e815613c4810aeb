// Package validate turns raw conversation text into normalized, typed booking
// fields. Every function is pure and deterministic: it returns the normalized
// value, a user-facing message in Spanish, and an ok flag. Nothing here
// performs I/O or panics past its boundary.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// MaxGuests caps the guest list; extra names are silently dropped but the
// message reports the cap.
const MaxGuests = 10

var (
	nameSplitRe = regexp.MustCompile(`[,&\n]|\s+y\s+`)
	nameNoiseRe = regexp.MustCompile(`[^a-zA-ZáéíóúñüÁÉÍÓÚÑÜ0-9 .\-]`)
	letterRe    = regexp.MustCompile(`[a-zA-ZáéíóúñüÁÉÍÓÚÑÜ]`)
	digitsRe    = regexp.MustCompile(`\D`)
	emailRe     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	wordCleanRe = regexp.MustCompile(`[^a-zA-Z0-9áéíóúñüÁÉÍÓÚÑÜ\s.\-]`)
	textCleanRe = regexp.MustCompile(`[^a-zA-Z0-9áéíóúñüÁÉÍÓÚÑÜ\s.,;:\-]`)
	commentRe   = regexp.MustCompile(`[^a-zA-Z0-9áéíóúñüÁÉÍÓÚÑÜ\s.,;:!?()\-]`)
)

// GuestNames splits raw input on commas, "y", "&" and line breaks, strips
// non-letter noise and title-cases each entry. A name needs at least two
// characters and one letter to survive. Fails only when no valid name
// remains.
func GuestNames(raw string) ([]string, string, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, "No se proporcionaron nombres de huéspedes", false
	}
	var names []string
	for _, part := range nameSplitRe.Split(raw, -1) {
		clean := nameNoiseRe.ReplaceAllString(strings.TrimSpace(part), "")
		clean = strings.Join(strings.Fields(clean), " ")
		if len([]rune(clean)) < 2 || !letterRe.MatchString(clean) {
			continue
		}
		if len([]rune(clean)) > 100 {
			clean = string([]rune(clean)[:100])
		}
		names = append(names, titleCase(clean))
	}
	if len(names) == 0 {
		return nil, "No se encontraron nombres válidos", false
	}
	if len(names) > MaxGuests {
		names = names[:MaxGuests]
		return names, fmt.Sprintf("Se limitó a %d huéspedes (máximo permitido)", MaxGuests), true
	}
	return names, fmt.Sprintf("OK: %d nombre(s) validado(s)", len(names)), true
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Date layouts tried in order. Day-month-year forms come first so an
// ambiguous string like "05-04-2026" is always read as the 5th of April,
// never April 5th read as May 4th. The order is load-bearing and covered by
// tests; do not reorder.
var dateLayouts = []string{
	"2-1-2006",           // DD/MM/YYYY
	"2-1-06",             // DD/MM/YY
	"2006-1-2",           // YYYY-MM-DD
	"1-2-2006",           // MM/DD/YYYY
	"2 de January de 2006", // DD de mes de YYYY
	"January 2, 2006",    // Month DD, YYYY
	"2 January 2006",     // DD Month YYYY
	"2-January-2006",     // DD-Month-YYYY
}

var spanishMonths = map[string]string{
	"enero": "january", "febrero": "february", "marzo": "march",
	"abril": "april", "mayo": "may", "junio": "june",
	"julio": "july", "agosto": "august", "septiembre": "september",
	"octubre": "october", "noviembre": "november", "diciembre": "december",
}

// ParseDate interprets a free-text date. Separators are normalized, Spanish
// month names are mapped to their canonical form, and the layouts above are
// tried in order. Dates before today or more than five years ahead of now
// are rejected. The returned time is midnight UTC of the parsed day.
func ParseDate(raw string, now time.Time) (time.Time, string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, "Fecha no proporcionada", false
	}
	s = strings.NewReplacer("/", "-", ".", "-").Replace(s)
	s = strings.ToLower(s)
	for es, en := range spanishMonths {
		s = strings.ReplaceAll(s, es, en)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if d.Before(today) {
			return time.Time{}, fmt.Sprintf("La fecha %s está en el pasado", raw), false
		}
		if d.Year() > today.Year()+5 {
			return time.Time{}, fmt.Sprintf("La fecha %s está muy lejos en el futuro", raw), false
		}
		return d, fmt.Sprintf("OK: Fecha interpretada como %s", d.Format("02/01/2006")), true
	}
	return time.Time{}, fmt.Sprintf("No se pudo interpretar la fecha: %s. Use formato DD/MM/AAAA", raw), false
}

// DateRange checks that salida is strictly after entrada and that the stay
// lasts between 1 and 30 days inclusive.
func DateRange(entrada, salida time.Time) (string, bool) {
	if entrada.IsZero() || salida.IsZero() {
		return "Fechas de entrada y salida requeridas", false
	}
	if !salida.After(entrada) {
		return "La fecha de salida debe ser posterior a la fecha de entrada", false
	}
	days := int(salida.Sub(entrada).Hours() / 24)
	if days > 30 {
		return "La estadía no puede ser mayor a 30 días", false
	}
	return fmt.Sprintf("OK: Estadía de %d día(s)", days), true
}

// Phone normalizes a phone number to digits with a leading plus sign.
// Ten-digit numbers get the Colombian country code prefixed. Fails outside
// the 7-15 digit range.
func Phone(raw string) (string, string, bool) {
	digits := digitsRe.ReplaceAllString(strings.TrimSpace(raw), "")
	switch {
	case digits == "":
		return "", "Número de teléfono requerido", false
	case len(digits) < 7:
		return "", "Número de teléfono muy corto", false
	case len(digits) > 15:
		return "", "Número de teléfono muy largo", false
	case len(digits) == 10:
		return "+57" + digits, "OK: Teléfono validado", true
	default:
		return "+" + digits, "OK: Teléfono validado", true
	}
}

// Email validates and lowercases an email address. Addresses longer than 100
// characters are rejected.
func Email(raw string) (string, string, bool) {
	clean := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case clean == "":
		return "", "Correo electrónico requerido", false
	case !emailRe.MatchString(clean):
		return "", "Formato de correo electrónico inválido", false
	case len(clean) > 100:
		return "", "Correo electrónico muy largo", false
	}
	return clean, "OK: Correo validado", true
}

// ContactInfo validates phone and email independently, accumulating all
// errors instead of stopping at the first.
func ContactInfo(phone, email string) (cleanPhone, cleanEmail string, errs []string) {
	p, msg, ok := Phone(phone)
	if ok {
		cleanPhone = p
	} else {
		errs = append(errs, msg)
	}
	e, msg, ok := Email(email)
	if ok {
		cleanEmail = e
	} else {
		errs = append(errs, msg)
	}
	return cleanPhone, cleanEmail, errs
}

// alias pairs a lowercase match candidate with its canonical value. Lookup
// tables are ordered slices, not maps, so fuzzy matches resolve in a fixed,
// documented priority and stay deterministic.
type alias struct {
	key, value string
}

// lookup resolves raw against a table: exact match first, then substring in
// both directions, walking the table in order.
func lookup(table []alias, lower string) (string, bool) {
	for _, a := range table {
		if a.key == lower {
			return a.value, true
		}
	}
	for _, a := range table {
		if strings.Contains(lower, a.key) || strings.Contains(a.key, lower) {
			return a.value, true
		}
	}
	return "", false
}

// domos is the controlled vocabulary of bookable domes. There is no
// free-text fallback: an unrecognized dome is a hard failure.
var domos = []alias{
	{"antares", "Antares"},
	{"polaris", "Polaris"},
	{"sirius", "Sirius"},
	{"centaury", "Centaury"},
	{"luna", "Antares"}, // common alias
	{"sol", "Polaris"},  // common alias
}

// Domo resolves a dome selection against the controlled vocabulary: exact
// match, then alias, then substring in both directions.
func Domo(raw string) (string, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return "", "Tipo de domo requerido", false
	}
	if v, ok := lookup(domos, lower); ok {
		return v, fmt.Sprintf("OK: Domo %s seleccionado", v), true
	}
	return "", fmt.Sprintf("Domo '%s' no reconocido. Opciones: Antares, Polaris, Sirius, Centaury", strings.TrimSpace(raw)), false
}

var servicios = []alias{
	{"estandar", "Servicio estándar"},
	{"standard", "Servicio estándar"},
	{"basico", "Servicio estándar"},
	{"romantico", "Cena romántica"},
	{"romantica", "Cena romántica"},
	{"cena", "Cena romántica"},
	{"premium", "Servicio premium"},
	{"especial", "Servicio especial"},
	{"vip", "Servicio VIP"},
}

// Service resolves a service selection: exact, alias, substring; anything
// else becomes an accepted custom value, cleaned and capped at 100 runes.
func Service(raw string) (string, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return "Servicio estándar", "OK: Servicio estándar seleccionado por defecto", true
	}
	if v, ok := lookup(servicios, lower); ok {
		return v, fmt.Sprintf("OK: %s seleccionado", v), true
	}
	custom := capRunes(wordCleanRe.ReplaceAllString(strings.TrimSpace(raw), ""), 100)
	return custom, fmt.Sprintf("OK: Servicio personalizado '%s'", custom), true
}

var metodosPago = []alias{
	{"efectivo", "Efectivo"},
	{"cash", "Efectivo"},
	{"transferencia", "Transferencia bancaria"},
	{"transfer", "Transferencia bancaria"},
	{"banco", "Transferencia bancaria"},
	{"tarjeta", "Tarjeta de crédito/débito"},
	{"card", "Tarjeta de crédito/débito"},
	{"credito", "Tarjeta de crédito/débito"},
	{"debito", "Tarjeta de crédito/débito"},
	{"pse", "PSE"},
	{"nequi", "Nequi"},
	{"daviplata", "Daviplata"},
	{"paypal", "PayPal"},
}

// PaymentMethod resolves a payment method the same way Service does, with a
// 50-rune cap on the custom fallback.
func PaymentMethod(raw string) (string, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return "No especificado", "OK: Método de pago por confirmar", true
	}
	if v, ok := lookup(metodosPago, lower); ok {
		return v, fmt.Sprintf("OK: %s seleccionado", v), true
	}
	custom := capRunes(wordCleanRe.ReplaceAllString(strings.TrimSpace(raw), ""), 50)
	return custom, fmt.Sprintf("OK: Método personalizado '%s'", custom), true
}

// AdditionalServices cleans free-text additional requests, capped at 200
// runes. Empty input is accepted as "Ninguna".
func AdditionalServices(raw string) (string, string, bool) {
	clean := capRunes(textCleanRe.ReplaceAllString(strings.TrimSpace(raw), ""), 200)
	if clean == "" {
		return "Ninguna", "OK: Sin servicios adicionales", true
	}
	return clean, "OK: Servicios adicionales registrados", true
}

// SpecialComments cleans free-text comments, capped at 500 runes. Empty
// input is accepted as "Ninguno".
func SpecialComments(raw string) (string, string, bool) {
	clean := capRunes(commentRe.ReplaceAllString(strings.TrimSpace(raw), ""), 500)
	if clean == "" {
		return "Ninguno", "OK: Sin comentarios especiales", true
	}
	return clean, "OK: Comentarios registrados", true
}

func capRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(string(r))
}
