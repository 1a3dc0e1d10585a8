// Package fixtures seeds a store from a YAML scenario file. Records refer to
// each other by key so a scenario reads without ids.
package fixtures

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

type File struct {
	Technicians    []Technician    `yaml:"technicians"`
	Calendar       []CalendarEntry `yaml:"calendar"`
	Materials      []Material      `yaml:"materials"`
	EquipmentTypes []EquipmentType `yaml:"equipment_types"`
	Tools          []ToolBatch     `yaml:"tools"`
	Jobs           []Job           `yaml:"jobs"`
}

type Technician struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
	Roles string `yaml:"roles"`
}

type CalendarEntry struct {
	Technician string    `yaml:"technician"`
	Start      time.Time `yaml:"start"`
	End        time.Time `yaml:"end"`
	Reason     string    `yaml:"reason"`
}

type Material struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Stock string `yaml:"stock"`
}

type EquipmentType struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	ModelNumber string `yaml:"model_number"`
	Category    string `yaml:"category"`
	Condition   string `yaml:"condition"`
}

// ToolBatch adds Count tools of one item type, numbered from 1
type ToolBatch struct {
	ItemType  string `yaml:"item_type"`
	Count     int    `yaml:"count"`
	Condition string `yaml:"condition"`
	Status    string `yaml:"status"`
}

type Job struct {
	Key          string        `yaml:"key"`
	Name         string        `yaml:"name"`
	Site         string        `yaml:"site"`
	Client       string        `yaml:"client"`
	Status       string        `yaml:"status"`
	Start        time.Time     `yaml:"start"`
	End          time.Time     `yaml:"end"`
	Requirements []Requirement `yaml:"requirements"`
	Tasks        []Task        `yaml:"tasks"`
}

type Requirement struct {
	Equipment string `yaml:"equipment"`
	Qty       int64  `yaml:"qty"`
}

type Task struct {
	Key        string     `yaml:"key"`
	Name       string     `yaml:"name"`
	Start      time.Time  `yaml:"start"`
	End        time.Time  `yaml:"end"`
	Technician string     `yaml:"technician"`
	After      []string   `yaml:"after"`
	Materials  []TaskNeed `yaml:"materials"`
}

type TaskNeed struct {
	Material string `yaml:"material"`
	Qty      string `yaml:"qty"`
}

// Result maps the keys of a seeded file to the ids they were given
type Result struct {
	Sites          map[string]uuid.UUID
	Technicians    map[string]uuid.UUID
	Materials      map[string]uuid.UUID
	EquipmentTypes map[string]uuid.UUID
	Jobs           map[string]uuid.UUID
	Tasks          map[string]uuid.UUID
	Tools          []uuid.UUID
}

// LoadFile reads and decodes a scenario file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return f, nil
}

// Decode parses a scenario; unknown fields are rejected
func Decode(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errs.Validation("decode fixture: %v", err)
	}
	return &f, nil
}

// Seed writes every record of f in one transaction
func Seed(ctx context.Context, uow repositories.UnitOfWork, f *File) (*Result, error) {
	var res *Result
	err := uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		s := &seeder{repos: repos, res: &Result{
			Sites:          map[string]uuid.UUID{},
			Technicians:    map[string]uuid.UUID{},
			Materials:      map[string]uuid.UUID{},
			EquipmentTypes: map[string]uuid.UUID{},
			Jobs:           map[string]uuid.UUID{},
			Tasks:          map[string]uuid.UUID{},
		}}
		if err := s.seed(ctx, f); err != nil {
			return err
		}
		res = s.res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

type seeder struct {
	repos repositories.Repositories
	res   *Result
}

func (s *seeder) seed(ctx context.Context, f *File) error {
	for _, step := range []func(context.Context, *File) error{
		s.technicians,
		s.calendar,
		s.materials,
		s.equipmentTypes,
		s.tools,
		s.jobs,
	} {
		if err := step(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// claim records a key, rejecting blanks and duplicates
func claim(m map[string]uuid.UUID, kind, key string, id uuid.UUID) error {
	if key == "" {
		return errs.Validation("%s key cannot be empty", kind)
	}
	if _, dup := m[key]; dup {
		return errs.Validation("duplicate %s key %q", kind, key)
	}
	m[key] = id
	return nil
}

func ref(m map[string]uuid.UUID, kind, key string) (uuid.UUID, error) {
	id, ok := m[key]
	if !ok {
		return uuid.Nil, errs.Validation("unknown %s %q", kind, key)
	}
	return id, nil
}

func (s *seeder) technicians(ctx context.Context, f *File) error {
	for _, t := range f.Technicians {
		tech, err := entities.NewTechnician(t.Name, t.Phone, t.Roles)
		if err != nil {
			return err
		}
		if err := claim(s.res.Technicians, "technician", t.Key, tech.ID); err != nil {
			return err
		}
		if err := s.repos.Resources().CreateTechnician(ctx, tech); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) calendar(ctx context.Context, f *File) error {
	for _, c := range f.Calendar {
		techID, err := ref(s.res.Technicians, "technician", c.Technician)
		if err != nil {
			return err
		}
		if c.End.Before(c.Start) {
			return errs.Validation("calendar entry for %s ends before it starts", c.Technician)
		}
		if err := s.repos.Resources().CreateCalendarEntry(ctx, &entities.CalendarEntry{
			ID:           uuid.New(),
			TechnicianID: techID,
			Start:        c.Start,
			End:          c.End,
			Reason:       c.Reason,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) materials(ctx context.Context, f *File) error {
	for _, m := range f.Materials {
		stock, err := decimal.NewFromString(m.Stock)
		if err != nil {
			return errs.Validation("material %q stock %q: %v", m.Key, m.Stock, err)
		}
		material, err := entities.NewMaterial(m.Name, stock)
		if err != nil {
			return err
		}
		if err := claim(s.res.Materials, "material", m.Key, material.ID); err != nil {
			return err
		}
		if err := s.repos.Resources().CreateMaterial(ctx, material); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) equipmentTypes(ctx context.Context, f *File) error {
	for _, e := range f.EquipmentTypes {
		et, err := entities.NewEquipmentType(e.Name, e.ModelNumber, e.Category)
		if err != nil {
			return err
		}
		if e.Condition != "" {
			et.Condition = entities.Condition(e.Condition)
			if !et.Condition.Valid() {
				return errs.Validation("equipment type %q: unknown condition %q", e.Key, e.Condition)
			}
		}
		if err := claim(s.res.EquipmentTypes, "equipment type", e.Key, et.ID); err != nil {
			return err
		}
		if err := s.repos.Equipment().CreateEquipmentType(ctx, et); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) tools(ctx context.Context, f *File) error {
	for _, b := range f.Tools {
		if b.ItemType == "" || b.Count <= 0 {
			return errs.Validation("tool batch needs an item type and a positive count")
		}
		condition := entities.ConditionGood
		if b.Condition != "" {
			condition = entities.Condition(b.Condition)
		}
		if !condition.Valid() {
			return errs.Validation("tool batch %s: unknown condition %q", b.ItemType, b.Condition)
		}
		status := entities.ToolAvailable
		if b.Status != "" {
			status = entities.ToolStatus(b.Status)
		}
		for i := 1; i <= b.Count; i++ {
			tool := &entities.Tool{
				ID:          uuid.New(),
				Name:        b.ItemType,
				ItemType:    b.ItemType,
				ModelNumber: entities.ToolModelNumber(b.ItemType, i),
				Status:      status,
				Condition:   condition,
			}
			if err := s.repos.Resources().CreateTool(ctx, tool); err != nil {
				return err
			}
			s.res.Tools = append(s.res.Tools, tool.ID)
		}
	}
	return nil
}

// site returns the id for a site key, assigning one on first use
func (s *seeder) site(key string) uuid.UUID {
	if id, ok := s.res.Sites[key]; ok {
		return id
	}
	id := uuid.New()
	s.res.Sites[key] = id
	return id
}

func (s *seeder) jobs(ctx context.Context, f *File) error {
	for _, j := range f.Jobs {
		if j.Site == "" {
			return errs.Validation("job %q has no site", j.Key)
		}
		job, err := entities.NewJob(j.Name, s.site(j.Site), uuid.NewSHA1(uuid.NameSpaceOID, []byte(j.Client)), j.Start, j.End)
		if err != nil {
			return err
		}
		if j.Status != "" {
			job.Status = entities.JobStatus(j.Status)
		}
		if err := claim(s.res.Jobs, "job", j.Key, job.ID); err != nil {
			return err
		}
		if err := s.repos.Jobs().CreateJob(ctx, job); err != nil {
			return err
		}
		for _, r := range j.Requirements {
			typeID, err := ref(s.res.EquipmentTypes, "equipment type", r.Equipment)
			if err != nil {
				return err
			}
			req, err := entities.NewJobRequirement(job.ID, typeID, entities.Quantity(r.Qty))
			if err != nil {
				return err
			}
			if err := s.repos.Jobs().AddRequirement(ctx, req); err != nil {
				return err
			}
		}
		if err := s.tasks(ctx, job, j.Tasks); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) tasks(ctx context.Context, job *entities.Job, tasks []Task) error {
	for _, t := range tasks {
		task, err := entities.NewJobTask(job.ID, t.Name, t.Start, t.End)
		if err != nil {
			return err
		}
		if t.Technician != "" {
			techID, err := ref(s.res.Technicians, "technician", t.Technician)
			if err != nil {
				return err
			}
			task.TechnicianID = &techID
		}
		if err := claim(s.res.Tasks, "task", t.Key, task.ID); err != nil {
			return err
		}
		if err := s.repos.Tasks().CreateTask(ctx, task); err != nil {
			return err
		}
		for _, need := range t.Materials {
			materialID, err := ref(s.res.Materials, "material", need.Material)
			if err != nil {
				return err
			}
			qty, err := decimal.NewFromString(need.Qty)
			if err != nil {
				return errs.Validation("task %q material %q qty %q: %v", t.Key, need.Material, need.Qty, err)
			}
			req, err := entities.NewMaterialRequirement(materialID, task.ID, qty)
			if err != nil {
				return err
			}
			if err := s.repos.Tasks().AddMaterialRequirement(ctx, req); err != nil {
				return err
			}
		}
	}
	// prerequisites may name any task of the job, so edges go in after every task exists
	for _, t := range tasks {
		for _, after := range t.After {
			prereq, err := ref(s.res.Tasks, "task", after)
			if err != nil {
				return err
			}
			dep, err := entities.NewTaskDependency(s.res.Tasks[t.Key], prereq)
			if err != nil {
				return err
			}
			if err := s.repos.Tasks().AddDependency(ctx, *dep); err != nil {
				return err
			}
		}
	}
	return nil
}
