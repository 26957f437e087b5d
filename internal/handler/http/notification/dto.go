package notification

import (
	"time"

	"casetrack/internal/domain/entity"
	"casetrack/internal/usecase/notify"
)

// AddRequest is the body of POST /cases/{id}/notifications.
// Arg values may be JSON strings, numbers or booleans.
type AddRequest struct {
	Type string         `json:"type" validate:"required,max=64,printascii"`
	Args map[string]any `json:"args" validate:"omitempty,max=32,dive,keys,required,max=64,endkeys"`
}

// NotificationDTO describes an accepted notification.
type NotificationDTO struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	CaseID    int64            `json:"case_id"`
	Message   string           `json:"message"`
	Status    string           `json:"status"`
	Targeting entity.Targeting `json:"targeting"`
	CreatedAt time.Time        `json:"created_at"`
}

// TypeDTO describes a registered notification type.
type TypeDTO struct {
	Name         string   `json:"name"`
	Broadcast    bool     `json:"broadcast"`
	Targets      []string `json:"targets,omitempty"`
	Template     string   `json:"template"`
	Placeholders []string `json:"placeholders"`
}

func toNotificationDTO(n *entity.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		CaseID:    n.CaseID,
		Message:   n.Message,
		Status:    n.Status,
		Targeting: n.Targeting,
		CreatedAt: n.CreatedAt,
	}
}

func toTypeDTO(t *notify.NotificationType) TypeDTO {
	placeholders := t.Placeholders()
	if placeholders == nil {
		placeholders = []string{}
	}
	return TypeDTO{
		Name:         t.Name,
		Broadcast:    t.IsBroadcast(),
		Targets:      t.Targets,
		Template:     t.Template,
		Placeholders: placeholders,
	}
}
