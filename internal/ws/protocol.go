package ws

import (
	"poker-settle/internal/room"
	"poker-settle/internal/settle"
)

// Inbound messages. Every frame carries a type discriminator; the reader
// peeks at it and unmarshals the matching struct.

type LoginMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type CreateRoomMessage struct {
	Type       string `json:"type"`
	PlayerName string `json:"playerName"`
}

type JoinRoomMessage struct {
	Type        string `json:"type"`
	RoomCode    string `json:"roomCode"`
	PlayerName  string `json:"playerName"`
	AdminSecret string `json:"adminSecret,omitempty"`
}

type UpdatePlayerMessage struct {
	Type       string            `json:"type"`
	RoomCode   string            `json:"roomCode"`
	PlayerName string            `json:"playerName"`
	Updates    room.PlayerUpdate `json:"updates"`
}

type UpdateSettingsMessage struct {
	Type     string              `json:"type"`
	RoomCode string              `json:"roomCode"`
	Settings room.SettingsUpdate `json:"settings"`
}

type GetSettlementMessage struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
}

// Outbound messages.

type LoginResult struct {
	Type         string `json:"type"`
	Ok           bool   `json:"ok"`
	Name         string `json:"name,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
	Error        string `json:"error,omitempty"`
}

type RoomCreated struct {
	Type        string     `json:"type"`
	RoomCode    string     `json:"roomCode"`
	Room        *room.Room `json:"room"`
	AdminSecret string     `json:"adminSecret"`
}

type RoomUpdated struct {
	Type string     `json:"type"`
	Room *room.Room `json:"room"`
}

type RoomClosed struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
}

type StatsUpdate struct {
	Type              string `json:"type"`
	ActiveRooms       int    `json:"activeRooms"`
	TotalRoomsCreated int64  `json:"totalRoomsCreated"`
}

type SettlementMessage struct {
	Type   string        `json:"type"`
	Result settle.Result `json:"result"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
