package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/glampingbrillodeluna/reserva-bot/internal/service"
)

// ChatHandler exposes the conversational pipeline over HTTP: a webhook
// for the WhatsApp gateway and a JSON endpoint for testing the bot
// without a phone.
type ChatHandler struct {
	Conv *service.ConversationService
}

func NewChatHandler(conv *service.ConversationService) *ChatHandler {
	return &ChatHandler{Conv: conv}
}

type chatReq struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Chat handles a JSON message and returns the bot's reply.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/message required"})
	}
	reply := h.Conv.HandleMessage(c.Request().Context(), req.UserID, req.Message)
	return c.JSON(http.StatusOK, echo.Map{"reply": reply})
}

// Webhook handles an inbound message from the WhatsApp gateway, which
// posts form-encoded From/Body pairs. The sender's number is the
// conversation key. The reply goes back as TwiML so the gateway relays
// it without a follow-up API call.
func (h *ChatHandler) Webhook(c echo.Context) error {
	from := strings.TrimSpace(c.FormValue("From"))
	body := c.FormValue("Body")
	if from == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "From required"})
	}
	reply := h.Conv.HandleMessage(c.Request().Context(), from, body)

	twiml := `<?xml version="1.0" encoding="UTF-8"?><Response><Message>` +
		xmlEscape(reply) + `</Message></Response>`
	return c.Blob(http.StatusOK, "application/xml", []byte(twiml))
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;",
)

func xmlEscape(s string) string { return xmlReplacer.Replace(s) }
