package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glampingbrillodeluna/reserva-bot/internal/flow"
	"github.com/glampingbrillodeluna/reserva-bot/internal/model"
	"github.com/glampingbrillodeluna/reserva-bot/internal/state"
)

type recordingPersister struct {
	created []*model.Reserva
}

func (p *recordingPersister) CreateReserva(_ context.Context, r *model.Reserva) (int64, error) {
	p.created = append(p.created, r)
	return int64(len(p.created)), nil
}

func newConversation(p *recordingPersister) *ConversationService {
	engine := flow.NewEngine(p)
	engine.Now = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC) }
	return NewConversationService(state.NewStore(30*time.Minute), engine)
}

func TestGreetingShowsMenu(t *testing.T) {
	conv := newConversation(&recordingPersister{})
	ctx := context.Background()

	for _, g := range []string{"hola", "Buenas tardes", "HEY"} {
		reply := conv.HandleMessage(ctx, "u:"+g, g)
		assert.Equal(t, menuText, reply, "greeting %q", g)
	}
}

func TestUnknownFirstMessageStillGetsMenu(t *testing.T) {
	conv := newConversation(&recordingPersister{})
	reply := conv.HandleMessage(context.Background(), "u1", "qué onda")
	assert.Equal(t, menuText, reply)

	// Once past first contact, unknown input gets the fallback instead.
	reply = conv.HandleMessage(context.Background(), "u1", "qué onda")
	assert.Equal(t, fallbackText, reply)
}

func TestMenuOptions(t *testing.T) {
	conv := newConversation(&recordingPersister{})
	ctx := context.Background()
	conv.HandleMessage(ctx, "u1", "hola")

	assert.Equal(t, domosText, conv.HandleMessage(ctx, "u1", "2"))
	assert.Equal(t, preciosText, conv.HandleMessage(ctx, "u1", "3"))
	assert.Equal(t, serviciosText, conv.HandleMessage(ctx, "u1", "4"))
	assert.Equal(t, contactoText, conv.HandleMessage(ctx, "u1", "5"))
	assert.Equal(t, menuText, conv.HandleMessage(ctx, "u1", "menú"))
}

func TestOptionOneEntersReservationFlow(t *testing.T) {
	p := &recordingPersister{}
	conv := newConversation(p)
	ctx := context.Background()

	conv.HandleMessage(ctx, "whatsapp:+573001234567", "hola")
	conv.HandleMessage(ctx, "whatsapp:+573001234567", "1")

	inputs := []string{
		"Juan Pérez, María González",
		"22/12/2025",
		"24/12/2025",
		"antares",
		"3001234567",
		"test@example.com",
		"transferencia",
		"si",
	}
	var reply string
	for _, in := range inputs {
		reply = conv.HandleMessage(ctx, "whatsapp:+573001234567", in)
	}

	require.Len(t, p.created, 1)
	assert.Equal(t, "whatsapp:+573001234567", p.created[0].NumeroWhatsapp)
	assert.Equal(t, "Antares", p.created[0].Domo)
	assert.Contains(t, reply, "Reserva confirmada")
}

func TestReservaKeywordSkipsMenu(t *testing.T) {
	conv := newConversation(&recordingPersister{})
	reply := conv.HandleMessage(context.Background(), "u1", "quiero reservar un domo")
	assert.Contains(t, reply, "empecemos tu reserva")
}

func TestFlowMessagesBypassMenuRouting(t *testing.T) {
	conv := newConversation(&recordingPersister{})
	ctx := context.Background()
	conv.HandleMessage(ctx, "u1", "reservar")

	// "2" inside the flow is a guest name attempt, not the menu option.
	reply := conv.HandleMessage(ctx, "u1", "Pedro Gómez")
	assert.Contains(t, reply, "fecha de entrada")
	assert.NotEqual(t, domosText, reply)
}
