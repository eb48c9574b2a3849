package models

import "time"

// PresenceRecord, bağlı bir kullanıcının hub'daki kaydı.
//
// Kullanıcı başına en fazla bir kayıt tutulur: aynı kullanıcı ikinci kez
// bağlanırsa kayıt yeni bağlantıyla değiştirilir.
type PresenceRecord struct {
	ConnectionID string      `json:"connectionId"`
	User         UserSummary `json:"user"`
	ConnectedAt  time.Time   `json:"connectedAt"`
}

// PresenceSnapshot, GET /api/presence yanıtı.
type PresenceSnapshot struct {
	Count int           `json:"count"`
	Users []UserSummary `json:"users"`
}
