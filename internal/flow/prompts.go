package flow

import (
	"fmt"
	"strings"

	"github.com/glampingbrillodeluna/reserva-bot/internal/state"
)

// User-facing prompts for each collection step. All copy is Spanish, the
// language of the guests.
const (
	promptGuests = "¡Perfecto, empecemos tu reserva! ¿A nombre de quién o quiénes será? " +
		"Escribe los nombres completos separados por comas."
	promptEntryDate = "¿Cuál es tu fecha de entrada? (formato DD/MM/AAAA)"
	promptExitDate  = "¿Y tu fecha de salida? (formato DD/MM/AAAA)"
	promptDome      = "¿Qué domo prefieres? Opciones: Antares, Polaris, Sirius, Centaury."
	promptPhone     = "¿A qué número de teléfono/WhatsApp podemos contactarte?"
	promptEmail     = "¿Cuál es tu correo electrónico de contacto?"
	promptPayment   = "¿Qué método de pago prefieres? (efectivo, tarjeta, transferencia, Nequi)"

	promptAvailabilityHold = "Estamos verificando la disponibilidad de tus fechas, dame un momento..."
	promptUnavailable      = "Lo sentimos, no hay disponibilidad para esas fechas. " +
		"¿Quieres intentar con otra fecha de entrada? (formato DD/MM/AAAA)"

	promptCancelled = "Listo, cancelé el proceso de reserva. Escribe \"menú\" cuando quieras ver las opciones de nuevo."

	promptConfirmRetry = "No entendí tu respuesta. Responde \"sí\" para confirmar la reserva, " +
		"\"no\" para corregir, o el nombre del dato que quieres cambiar (por ejemplo \"fechas\")."

	promptRestart = "De acuerdo, corrijamos los datos. " + promptGuests

	promptPersistError = "Tuvimos un problema técnico guardando tu reserva. Tu información no se perdió; " +
		"responde \"sí\" para intentarlo de nuevo."
)

func promptExtras(d *state.Draft) string {
	return summary(d) + "\n\n¿Deseas agregar servicios adicionales o comentarios? " +
		"Escríbelos, o responde \"sí\" para confirmar la reserva tal como está " +
		"(\"no\" si todo está bien pero prefieres revisar antes)."
}

func promptConfirm(d *state.Draft) string {
	return summary(d) + "\n\n¿Confirmas esta reserva? Responde \"sí\" para guardarla " +
		"o el nombre del dato que quieras cambiar."
}

// summary renders the draft for the guest to review.
func summary(d *state.Draft) string {
	var b strings.Builder
	b.WriteString("Resumen de tu reserva:\n")
	fmt.Fprintf(&b, "- Huéspedes: %s (%d)\n", strings.Join(d.NombresHuespedes, ", "), d.CantidadHuespedes)
	fmt.Fprintf(&b, "- Domo: %s\n", d.Domo)
	if d.FechaEntrada != nil && d.FechaSalida != nil {
		fmt.Fprintf(&b, "- Entrada: %s\n", d.FechaEntrada.Format("02/01/2006"))
		fmt.Fprintf(&b, "- Salida: %s\n", d.FechaSalida.Format("02/01/2006"))
	}
	fmt.Fprintf(&b, "- Contacto: %s / %s\n", d.NumeroContacto, d.EmailContacto)
	fmt.Fprintf(&b, "- Pago: %s\n", d.MetodoPago)
	if d.Adicciones != "" && d.Adicciones != "Ninguna" {
		fmt.Fprintf(&b, "- Adicionales: %s\n", d.Adicciones)
	}
	if d.ComentariosEspeciales != "" && d.ComentariosEspeciales != "Ninguno" {
		fmt.Fprintf(&b, "- Comentarios: %s\n", d.ComentariosEspeciales)
	}
	fmt.Fprintf(&b, "- Total: $%d COP", d.MontoTotal)
	return b.String()
}

func confirmationMessage(id int64, d *state.Draft) string {
	return fmt.Sprintf("¡Reserva confirmada y guardada! Tu número de reserva es #%d.\n%s\n\n"+
		"Nos contactaremos contigo pronto para coordinar los detalles. "+
		"¡Gracias por elegir Glamping Brillo de Luna!", id, summary(d))
}

func retryMessage(problem string) string {
	return problem + "\nIntentémoslo de nuevo."
}
