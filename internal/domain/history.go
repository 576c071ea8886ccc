package domain

import "time"

// StatusHistoryEntry rows are insert-only.
type StatusHistoryEntry struct {
	ID        int64         `gorm:"primaryKey" json:"-"`
	BookingID int64         `gorm:"index;not null" json:"-"`
	Status    BookingStatus `gorm:"type:varchar(32);not null" json:"status"`
	At        time.Time     `gorm:"not null" json:"timestamp"`
	ActorID   string        `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	ActorRole ActorRole     `gorm:"type:varchar(20)" json:"actor_role,omitempty"`
	Automatic bool          `json:"automatic"`
}

func (StatusHistoryEntry) TableName() string { return "transport_booking_status_history" }

type MessageType string

const (
	MessageText         MessageType = "text"
	MessageQuote        MessageType = "quote"
	MessageStatusUpdate MessageType = "status_update"
	MessagePayment      MessageType = "payment"
	MessageCancellation MessageType = "cancellation"
)

// CommunicationEntry rows are insert-only.
type CommunicationEntry struct {
	ID         int64       `gorm:"primaryKey" json:"-"`
	BookingID  int64       `gorm:"index;not null" json:"-"`
	SenderRole ActorRole   `gorm:"type:varchar(20);not null" json:"sender"`
	Message    string      `gorm:"type:text;not null" json:"message"`
	Type       MessageType `gorm:"type:varchar(20);not null" json:"type"`
	At         time.Time   `gorm:"not null" json:"timestamp"`
}

func (CommunicationEntry) TableName() string { return "transport_booking_messages" }
