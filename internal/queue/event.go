// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

// ReservaConfirmedEvent is published when a reservation is successfully
// persisted. It contains enough information for downstream consumers to
// log, notify the operations team, or trigger analytics without querying
// the primary database.
type ReservaConfirmedEvent struct {
	ReservaID         int64  `json:"reserva_id"`
	NumeroWhatsapp    string `json:"numero_whatsapp"`
	NombresHuespedes  string `json:"nombres_huespedes"`
	CantidadHuespedes int    `json:"cantidad_huespedes"`
	Domo              string `json:"domo"`
	FechaEntrada      string `json:"fecha_entrada"`
	FechaSalida       string `json:"fecha_salida"`
	MontoTotal        int64  `json:"monto_total"`
	ConfirmedAt       string `json:"confirmed_at"`
}
