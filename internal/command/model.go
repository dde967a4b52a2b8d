package command

import (
	"time"

	"gorm.io/datatypes"
)

// Command is one natural-language instruction received from the chat or
// voice widget, with its parse result and the system's reply.
type Command struct {
	ID               uint           `gorm:"column:id;primaryKey"            json:"id"`
	InputText        string         `gorm:"column:input_text"               json:"input_text"`
	CommandType      string         `gorm:"column:command_type"             json:"command_type"`
	ParsedAction     string         `gorm:"column:parsed_action"            json:"parsed_action"`
	ParsedParameters datatypes.JSON `gorm:"column:parsed_parameters"        json:"parsed_parameters,omitempty"`
	ResponseText     string         `gorm:"column:response_text"            json:"response_text"`
	Status           string         `gorm:"column:status;default:pending"   json:"status"`
	ErrorMessage     string         `gorm:"column:error_message"            json:"error_message,omitempty"`
	SessionID        string         `gorm:"column:session_id"               json:"session_id"`
	CreatedAt        time.Time      `gorm:"column:created_at"               json:"created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"               json:"updated_at"`
}

func (Command) TableName() string {
	return "ai_commands"
}

const (
	TypeText  = "text"
	TypeVoice = "voice"
)

const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)
