package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

type Tool struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ItemType    string    `json:"item_type"`
	ModelNumber string    `json:"model_number"`
	Status      string    `json:"status"`
	Condition   string    `json:"condition"`
}

func FromTools(tools []*entities.Tool) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, Tool{
			ID:          t.ID,
			Name:        t.Name,
			ItemType:    t.ItemType,
			ModelNumber: t.ModelNumber,
			Status:      string(t.Status),
			Condition:   string(t.Condition),
		})
	}
	return out
}

type ToolAssignment struct {
	ID             uuid.UUID  `json:"id"`
	ToolID         uuid.UUID  `json:"tool_id"`
	TechnicianID   uuid.UUID  `json:"technician_id"`
	JobID          *uuid.UUID `json:"job_id,omitempty"`
	CheckoutDate   time.Time  `json:"checkout_date"`
	ExpectedReturn time.Time  `json:"expected_return"`
	ActualReturn   *time.Time `json:"actual_return,omitempty"`
}

func FromToolAssignment(a *entities.ToolAssignment) ToolAssignment {
	return ToolAssignment(*a)
}

type AddToolBatchRequest struct {
	ItemType  string `json:"item_type" binding:"required"`
	Count     int    `json:"count" binding:"required,min=1"`
	Condition string `json:"condition"`
}

type CheckOutRequest struct {
	TechnicianID   uuid.UUID  `json:"technician_id" binding:"required"`
	JobID          *uuid.UUID `json:"job_id"`
	ExpectedReturn time.Time  `json:"expected_return" binding:"required"`
}
