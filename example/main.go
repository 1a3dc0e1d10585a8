package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/application/app"
	"github.com/vsinha/fieldflow/pkg/application/dto"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
	"github.com/vsinha/fieldflow/pkg/infrastructure/locking"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/fixtures"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/fieldflow/pkg/interfaces/cli/output"
)

const scenario = `
technicians:
  - key: alice
    name: Alice
    roles: splicer
  - key: bob
    name: Bob
materials:
  - key: cable
    name: Fibre cable
    stock: "100"
equipment_types:
  - key: router
    name: Router
    model_number: RT-100
    category: network
jobs:
  - key: tower12
    name: Tower 12 upgrade
    site: tower-12
    client: northwind
    start: 2025-04-01
    end: 2025-04-10
    requirements:
      - equipment: router
        qty: 10
    tasks:
      - key: survey
        name: Site survey
        start: 2025-04-01
        end: 2025-04-03
        technician: alice
      - key: install
        name: Router install
        start: 2025-04-04
        end: 2025-04-06
        after: [survey]
        materials:
          - material: cable
            qty: "60"
`

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.NewNop()
	store := memory.NewStore()

	f, err := fixtures.Decode([]byte(scenario))
	if err != nil {
		return err
	}
	seeded, err := fixtures.Seed(ctx, store, f)
	if err != nil {
		return err
	}
	jobID := seeded.Jobs["tower12"]
	installID := seeded.Tasks["install"]

	stream := events.NewSyncEventStore(log)
	svcs := app.New(store, locking.NewLocalLocker(), log, app.Options{Events: stream, PlanningSeed: 42})

	fmt.Println("📡 Tower 12 upgrade")
	fmt.Println()

	analysis, err := svcs.Scheduler.GetCriticalPath(ctx, jobID)
	if err != nil {
		return err
	}
	if err := output.CriticalPath(output.Config{}, dto.FromCriticalPath(analysis)); err != nil {
		return err
	}
	fmt.Println()

	issues, err := svcs.Forecaster.ForecastMaterialForJob(ctx, installID)
	if err != nil {
		return err
	}
	fmt.Printf("🧮 Material shortfalls for the install: %d\n", len(issues))
	if at, ok, err := svcs.Forecaster.FindEarliestAvailabilityDate(ctx, seeded.Materials["cable"], decimal.NewFromInt(80)); err != nil {
		return err
	} else if ok {
		fmt.Printf("   80m of cable is free from %s\n", at.Format("2006-01-02"))
	} else {
		fmt.Printf("   80m of cable is not available inside the horizon\n")
	}
	fmt.Println()

	// Equipment pipeline: accept, receive 9 of 10, ship, install, close
	batch, err := svcs.Workflow.AcceptJob(ctx, jobID)
	if err != nil {
		return err
	}
	line := batch.Lines[0]
	fmt.Printf("✅ Accepted: batch %s with %d %s\n", batch.ID, line.PlannedQty, line.EquipmentName)

	received, err := svcs.Workflow.ReceiveEquipmentBatch(ctx, batch.ID, map[uuid.UUID]entities.Quantity{line.ID: 9})
	if err != nil {
		return err
	}
	fmt.Printf("📦 Received: %s, %d discrepancies\n", received.Batch.Status, len(received.Discrepancies))

	if _, err := svcs.Workflow.ShipEquipmentBatch(ctx, batch.ID); err != nil {
		return err
	}
	if _, err := svcs.Workflow.AssignEquipmentLine(ctx, installID, line.ID, 9, "mast A"); err != nil {
		return err
	}
	for _, key := range []string{"survey", "install"} {
		done, err := svcs.Workflow.CompleteTaskWithEquipment(ctx, seeded.Tasks[key])
		if err != nil {
			return err
		}
		fmt.Printf("🔧 Completed %s: %d lines installed\n", done.Task.Name, len(done.Installed))
	}

	closed, err := svcs.Workflow.CloseJobWithValidation(ctx, jobID)
	if err != nil {
		return err
	}
	fmt.Printf("🏁 Closed: job %s, %d ledger entries\n", closed.Job.Status, len(closed.LedgerEntries))

	snaps, err := svcs.Workflow.RebuildSiteEquipmentSnapshots(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	if err := output.Snapshots(output.Config{}, dto.FromSnapshots(snaps)); err != nil {
		return err
	}

	history, err := stream.ReadEvents(events.JobStream(jobID), 0)
	if err != nil {
		return err
	}
	fmt.Printf("\n🗒  %d workflow events recorded\n", len(history))
	return nil
}
