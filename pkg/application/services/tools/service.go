// Package tools manages the serialized tool pool and its checkouts.
package tools

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/application/services/shared"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

// Service adds tools and tracks who has them
type Service struct {
	uow repositories.UnitOfWork
	log *logger.Logger
	now shared.Clock
}

// NewService creates a tool service
func NewService(uow repositories.UnitOfWork, log *logger.Logger, now shared.Clock) *Service {
	if now == nil {
		now = shared.SystemClock
	}
	return &Service{
		uow: uow,
		log: log.With("service", "Tools"),
		now: now,
	}
}

// AddToolBatch creates count tools of itemType. Model numbers are the item
// type followed by a counter continuing after the highest existing one.
func (s *Service) AddToolBatch(ctx context.Context, itemType string, count int, condition entities.Condition) ([]*entities.Tool, error) {
	itemType = strings.TrimSpace(itemType)
	switch {
	case itemType == "":
		return nil, errs.Wrap("AddToolBatch", errs.Validation("tool item type cannot be empty"))
	case count <= 0:
		return nil, errs.Wrap("AddToolBatch", errs.Validation("tool count must be positive, got %d", count))
	case !condition.Valid():
		return nil, errs.Wrap("AddToolBatch", errs.Validation("unknown tool condition %q", condition))
	}

	var created []*entities.Tool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		existing, err := repos.Resources().ListTools(ctx)
		if err != nil {
			return err
		}
		next := highestSuffix(existing, itemType) + 1

		for i := 0; i < count; i++ {
			tool := &entities.Tool{
				ID:          uuid.New(),
				Name:        itemType,
				ItemType:    itemType,
				ModelNumber: entities.ToolModelNumber(itemType, next+i),
				Status:      entities.ToolAvailable,
				Condition:   condition,
			}
			if err := repos.Resources().CreateTool(ctx, tool); err != nil {
				return err
			}
			created = append(created, tool)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("AddToolBatch", err)
	}
	s.log.Info("tools added", "item_type", itemType, "count", count, "first", created[0].ModelNumber)
	return created, nil
}

func highestSuffix(tools []*entities.Tool, itemType string) int {
	highest := 0
	for _, tool := range tools {
		if tool.ItemType != itemType {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(tool.ModelNumber, itemType))
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

// CheckOut hands a tool to a technician until expectedReturn
func (s *Service) CheckOut(ctx context.Context, toolID, technicianID uuid.UUID, jobID *uuid.UUID, expectedReturn time.Time) (*entities.ToolAssignment, error) {
	var assignment *entities.ToolAssignment
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		tool, err := repos.Resources().GetTool(ctx, toolID)
		if err != nil {
			return err
		}
		if _, err := repos.Resources().GetTechnician(ctx, technicianID); err != nil {
			return err
		}
		if jobID != nil {
			if _, err := repos.Jobs().GetJob(ctx, *jobID); err != nil {
				return err
			}
		}

		switch tool.Status {
		case entities.ToolRetired, entities.ToolUnderMaintenance:
			return errs.InvalidState("", "tool is "+string(tool.Status), tool.ModelNumber)
		}
		open, err := openAssignment(ctx, repos, toolID)
		if err != nil {
			return err
		}
		if open != nil {
			return errs.InvalidState("", "tool is already checked out", tool.ModelNumber)
		}

		assignment, err = entities.NewToolAssignment(toolID, technicianID, jobID, s.now(), expectedReturn)
		if err != nil {
			return err
		}
		if err := repos.Resources().CreateToolAssignment(ctx, assignment); err != nil {
			return err
		}
		tool.Status = entities.ToolCheckedOut
		return repos.Resources().UpdateTool(ctx, tool)
	})
	if err != nil {
		return nil, errs.Wrap("CheckOut", err)
	}
	s.log.Info("tool checked out", "tool_id", toolID, "technician_id", technicianID)
	return assignment, nil
}

// Return closes the tool's open checkout and makes it available again
func (s *Service) Return(ctx context.Context, toolID uuid.UUID) (*entities.ToolAssignment, error) {
	var assignment *entities.ToolAssignment
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		tool, err := repos.Resources().GetTool(ctx, toolID)
		if err != nil {
			return err
		}
		assignment, err = openAssignment(ctx, repos, toolID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return errs.InvalidState("", "tool is not checked out", tool.ModelNumber)
		}

		now := s.now()
		assignment.ActualReturn = &now
		if err := repos.Resources().UpdateToolAssignment(ctx, assignment); err != nil {
			return err
		}
		tool.Status = entities.ToolAvailable
		return repos.Resources().UpdateTool(ctx, tool)
	})
	if err != nil {
		return nil, errs.Wrap("Return", err)
	}
	s.log.Info("tool returned", "tool_id", toolID)
	return assignment, nil
}

// List returns every tool ordered by model number
func (s *Service) List(ctx context.Context) ([]*entities.Tool, error) {
	var tools []*entities.Tool
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		tools, err = repos.Resources().ListTools(ctx)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("List", err)
	}
	return tools, nil
}

func openAssignment(ctx context.Context, repos repositories.Repositories, toolID uuid.UUID) (*entities.ToolAssignment, error) {
	open, err := repos.Resources().ListOpenToolAssignments(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range open {
		if a.ToolID == toolID {
			return a, nil
		}
	}
	return nil, nil
}
