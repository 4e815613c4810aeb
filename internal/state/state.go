// Package state holds the per-user conversation state and the in-memory
// store that caches it between messages. State is derived data, never the
// system of record: it can be evicted at any time and a fresh default is
// indistinguishable from a cache miss.
package state

import (
	"encoding/json"
	"time"
)

// Flow names a multi-step conversational procedure.
type Flow string

const (
	FlowNone        Flow = "none"
	FlowReservation Flow = "reserva"
	FlowMenu        Flow = "menu"
	FlowOther       Flow = "other"
)

// Step identifies the position inside the active flow. It is only
// meaningful relative to CurrentFlow and is StepNone whenever the flow is
// FlowNone.
type Step int

const (
	StepNone Step = iota
	StepGuestNames
	StepEntryDate
	StepExitDate
	StepDome
	StepContactPhone
	StepContactEmail
	StepPayment
	StepExtras
	StepConfirm
)

// Draft accumulates partially validated booking fields across turns. Zero
// values mean "not yet collected"; rejected input is never merged, so the
// flow engine can tell "not asked" apart from "asked and refused" by
// comparing the current step against what is set.
type Draft struct {
	NombresHuespedes      []string   `json:"nombres_huespedes,omitempty"`
	CantidadHuespedes     int        `json:"cantidad_huespedes,omitempty"`
	Domo                  string     `json:"domo,omitempty"`
	FechaEntrada          *time.Time `json:"fecha_entrada,omitempty"`
	FechaSalida           *time.Time `json:"fecha_salida,omitempty"`
	NumeroContacto        string     `json:"numero_contacto,omitempty"`
	EmailContacto         string     `json:"email_contacto,omitempty"`
	MetodoPago            string     `json:"metodo_pago,omitempty"`
	ServicioElegido       string     `json:"servicio_elegido,omitempty"`
	Adicciones            string     `json:"adicciones,omitempty"`
	ComentariosEspeciales string     `json:"comentarios_especiales,omitempty"`
	MontoTotal            int64      `json:"monto_total,omitempty"`
}

// State is one user's position in the guided dialogue.
type State struct {
	UserID                 string    `json:"user_id"`
	CurrentFlow            Flow      `json:"current_flow"`
	Step                   Step      `json:"reserva_step"`
	Draft                  Draft     `json:"reserva_data"`
	WaitingForAvailability bool      `json:"waiting_for_availability"`
	LastActivity           time.Time `json:"last_activity"`
}

// New returns the default state for a user that has never written before.
func New(userID string) *State {
	return &State{
		UserID:       userID,
		CurrentFlow:  FlowNone,
		Step:         StepNone,
		LastActivity: time.Now().UTC(),
	}
}

// Reset returns the state to FlowNone. Step and draft are cleared together
// with the flow; a state with FlowNone but a stale step or draft must never
// exist.
func (s *State) Reset() {
	s.CurrentFlow = FlowNone
	s.Step = StepNone
	s.Draft = Draft{}
	s.WaitingForAvailability = false
}

// Touch records activity so TTL eviction sees the entry as live.
func (s *State) Touch(now time.Time) {
	s.LastActivity = now.UTC()
}

// Encode serializes the state for persistence or transfer.
func (s *State) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Decode reconstructs a state previously produced by Encode.
func Decode(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
