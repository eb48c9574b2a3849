// Package main, WebSocket Hub callback wire-up.
//
// Hub ws paketinde yaşıyor, DB güncellemesi ise service/repo katmanında.
// Hub'ın service'lere bağımlı olmasını istemiyoruz; bağlantı burada kurulur.
//
// Presence callback'leri hub'ın callback kuyruğunda sırayla çalışır.
// Komut callback'leri ise ilgili client'ın ReadPump'ında senkron çağrılır,
// dönen error o bağlantıya "error" event'i olarak gider.
package main

import (
	"github.com/akinalp/yapyap/ws"
)

// registerHubCallbacks, tüm Hub callback'lerini register eder.
// hub.Run() başlamadan önce çağrılmalıdır.
func registerHubCallbacks(hub *ws.Hub, svcs *Services) {
	hub.OnAdmit(svcs.Presence.UserConnected)
	hub.OnRemove(svcs.Presence.UserDisconnected)

	hub.OnJoinRoom(svcs.Room.Join)
	hub.OnLeaveRoom(svcs.Room.Leave)

	hub.OnSendMessage(svcs.Message.Send)
	hub.OnEditMessage(svcs.Message.Edit)
	hub.OnDeleteMessage(svcs.Message.Delete)
	hub.OnMarkRead(svcs.Message.MarkRead)
}
