// Package handler exposes the GUPSHUP web surface: anon token issuance,
// the websocket endpoint and the profile API.
package handler

import (
	"github.com/tk22kalal/chatbot/internal/gupshup"
	"github.com/tk22kalal/chatbot/internal/storage"
)

// Handler carries the group chat service and storage for the HTTP layer.
type Handler struct {
	Service   *gupshup.Service
	Storage   storage.Storage
	JWTSecret []byte
}

func NewHandler(service *gupshup.Service, store storage.Storage, jwtSecret string) *Handler {
	return &Handler{
		Service:   service,
		Storage:   store,
		JWTSecret: []byte(jwtSecret),
	}
}
