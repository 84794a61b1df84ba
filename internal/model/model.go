package model

import (
	"strconv"
	"time"
)

type Thread struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Conversation is an uploaded text or JSON export attached to exactly one thread.
// Content is read-only after upload; Modifications is a separately editable note.
type Conversation struct {
	ID            string    `json:"id"`
	ThreadID      string    `json:"threadId"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	UploadedAt    time.Time `json:"uploadedAt"`
	Modifications string    `json:"modifications,omitempty"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Counter is a capped value rendered as current/max.
type Counter struct {
	Current int64 `json:"current"`
	Max     int64 `json:"max"`
}

func (c Counter) String() string {
	return strconv.FormatInt(c.Current, 10) + " / " + strconv.FormatInt(c.Max, 10)
}

type Character struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	SubName         string  `json:"subName"`
	Server          string  `json:"server"`
	Gold            int64   `json:"gold"`
	SilverCoins     Counter `json:"silverCoins"`
	FomorianTribute Counter `json:"fomorianTribute"`
}

type InventoryEntry struct {
	Label    string  `json:"label"`
	Quantity float64 `json:"quantity"`
}
