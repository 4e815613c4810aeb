package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glampingbrillodeluna/reserva-bot/internal/flow"
	"github.com/glampingbrillodeluna/reserva-bot/internal/state"
)

const menuText = `¡Hola! Soy el asistente de Glamping Brillo de Luna 🌙
¿En qué puedo ayudarte?

1️⃣ Hacer una reserva
2️⃣ Conocer nuestros domos
3️⃣ Ver precios
4️⃣ Servicios adicionales
5️⃣ Ubicación y contacto

Responde con el número de la opción.`

const domosText = `Nuestros domos:

✨ Antares: el nido de amor, con jacuzzi privado.
✨ Polaris: el más amplio, con sofá cama para huéspedes adicionales.
✨ Sirius: acogedor, con vista a las montañas.
✨ Centaury: rodeado de naturaleza, ideal para desconectarse.

Escribe "reservar" cuando quieras agendar tu estadía.`

const preciosText = `Precios por noche (pareja):

• Antares: $650.000 COP
• Polaris: $550.000 COP (huésped adicional: $100.000 por noche)
• Sirius: $450.000 COP
• Centaury: $450.000 COP

Escribe "reservar" para agendar tu estadía.`

const serviciosText = `Servicios adicionales:

• Masaje relajante: $90.000 por persona ($180.000 en pareja)
• Decoración especial: $60.000
• Paseo en velero: $150.000
• Paseo en lancha: $80.000
• Caminata al Montecillo: $50.000
• Visita al Pozo Azul: $70.000

Escribe "reservar" para agendar tu estadía.`

const contactoText = `Estamos en la vereda El Montecillo, a 15 minutos del pueblo.
📞 WhatsApp: +57 300 123 4567
📧 reservas@glampingbrillodeluna.co

Escribe "reservar" cuando quieras agendar tu estadía.`

const fallbackText = `No entendí tu mensaje. Escribe "menú" para ver las opciones o "reservar" para agendar tu estadía.`

var greetings = []string{"hola", "buenas", "buenos dias", "buenos días", "buenas tardes", "buenas noches", "hey", "saludos"}

var reservaKeywords = []string{"reserva", "reservar", "agendar", "quiero un domo", "disponibilidad"}

// ConversationService routes an incoming WhatsApp message to the right
// place: the reservation flow when one is active, the menu otherwise.
// All state access for a user runs under the store's per-key lock, so two
// messages from the same number can never interleave their step
// transitions.
type ConversationService struct {
	store  *state.Store
	engine *flow.Engine
	now    func() time.Time
}

// NewConversationService wires the conversational front door.
func NewConversationService(store *state.Store, engine *flow.Engine) *ConversationService {
	return &ConversationService{store: store, engine: engine, now: time.Now}
}

// HandleMessage consumes one inbound message and returns the reply to
// send back.
func (c *ConversationService) HandleMessage(ctx context.Context, userID, message string) string {
	var reply string
	c.store.Do(userID, func(s *state.State) {
		s.Touch(c.now())
		reply = c.handle(ctx, s, message)
	})
	log.Debug().Str("component", "conversation_service").Str("user_id", userID).
		Int("reply_len", len(reply)).Msg("message handled")
	return reply
}

func (c *ConversationService) handle(ctx context.Context, s *state.State, message string) string {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	if s.CurrentFlow == state.FlowReservation {
		return c.engine.Advance(ctx, s, trimmed)
	}

	for _, g := range greetings {
		if lower == g {
			s.CurrentFlow = state.FlowMenu
			return menuText
		}
	}
	for _, kw := range reservaKeywords {
		if strings.Contains(lower, kw) {
			return c.engine.Start(s)
		}
	}

	switch lower {
	case "1":
		return c.engine.Start(s)
	case "2":
		return domosText
	case "3":
		return preciosText
	case "4":
		return serviciosText
	case "5":
		return contactoText
	case "menu", "menú":
		s.CurrentFlow = state.FlowMenu
		return menuText
	}

	// First contact without a greeting still deserves the menu.
	if s.CurrentFlow == state.FlowNone {
		s.CurrentFlow = state.FlowMenu
		return menuText
	}
	return fallbackText
}

// ResolveAvailability delivers the outcome of a pending availability
// check for a parked conversation and returns the message to push to the
// user, or "" when the user was not waiting.
func (c *ConversationService) ResolveAvailability(userID string, available bool) string {
	var reply string
	c.store.Do(userID, func(s *state.State) {
		reply = c.engine.ResolveAvailability(s, available)
	})
	return reply
}
