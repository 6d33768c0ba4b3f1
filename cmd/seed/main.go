// Command seed creates the schema and loads master data (rooms, bins,
// exams, course registrations and staff accounts) from a YAML file.
//
//	seed -f fixtures.yaml
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/exam-seating/internal/config"
	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/repository"
)

type fixture struct {
	Rooms []struct {
		ID       uint64 `yaml:"id"       validate:"required"`
		Name     string `yaml:"name"     validate:"required"`
		Capacity int    `yaml:"capacity" validate:"gte=0"`
		Floor    string `yaml:"floor"`
	} `yaml:"rooms" validate:"dive"`
	Bins []struct {
		ID       uint64 `yaml:"id"       validate:"required"`
		Name     string `yaml:"name"     validate:"required"`
		RoomID   uint64 `yaml:"room_id"  validate:"required"`
		Program  string `yaml:"program"  validate:"required"`
		Level    string `yaml:"level"    validate:"required"`
		Capacity int    `yaml:"capacity" validate:"gte=0"`
	} `yaml:"bins" validate:"dive"`
	Exams []struct {
		ID       uint64 `yaml:"id"`
		Year     string `yaml:"year"`
		Semester string `yaml:"semester"`
		Type     string `yaml:"type"`
		Program  string `yaml:"program" validate:"required"`
		Level    string `yaml:"level"   validate:"required"`
		Course   string `yaml:"course"  validate:"required"`
		Day      string `yaml:"day"     validate:"omitempty,oneof=Saturday Sunday Monday Tuesday Wednesday Thursday Friday"`
		Period   string `yaml:"period"`
		Date     string `yaml:"date"`
	} `yaml:"exams" validate:"dive"`
	Registrations []struct {
		StudentID string `yaml:"student_id" validate:"required"`
		Name      string `yaml:"name"`
		Program   string `yaml:"program"    validate:"required"`
		Course    string `yaml:"course"     validate:"required"`
		Level     string `yaml:"level"      validate:"required"`
	} `yaml:"registrations" validate:"dive"`
	Users []struct {
		Email    string `yaml:"email"    validate:"required,email"`
		Password string `yaml:"password" validate:"required,min=8"`
		Role     string `yaml:"role"     validate:"required,oneof=ADMIN STAFF"`
	} `yaml:"users" validate:"dive"`
}

func loadFixture(path string) (fixture, error) {
	var fx fixture
	raw, err := os.ReadFile(path)
	if err != nil {
		return fx, err
	}
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fx, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validator.New().Struct(fx); err != nil {
		return fx, fmt.Errorf("validate %s: %w", path, err)
	}
	return fx, nil
}

// apply inserts the fixture.  Accounts whose email already exists are
// skipped so the command can be re-run after adding users.
func apply(ctx context.Context, db *sql.DB, d database.Dialect, fx fixture, bcryptCost int) error {
	bins := repository.NewBinRepo(db, d)
	exams := repository.NewExamRepo(db, d)
	regs := repository.NewCandidateRepo(db, d)
	users := repository.NewUserRepo(db, d)

	for _, r := range fx.Rooms {
		if _, err := bins.CreateRoom(ctx, model.Room{ID: r.ID, Name: r.Name, Capacity: r.Capacity, Floor: r.Floor}); err != nil {
			return fmt.Errorf("room %d: %w", r.ID, err)
		}
	}
	for _, b := range fx.Bins {
		bin := model.Bin{ID: b.ID, Name: b.Name, RoomID: b.RoomID, Program: b.Program, Level: b.Level, Capacity: b.Capacity}
		if _, err := bins.Create(ctx, bin); err != nil {
			return fmt.Errorf("bin %d: %w", b.ID, err)
		}
	}
	for _, e := range fx.Exams {
		exam := model.Exam{ID: e.ID, Year: e.Year, Semester: e.Semester, Type: e.Type, Program: e.Program,
			Level: e.Level, CourseCode: e.Course, Day: e.Day, Period: e.Period, Date: e.Date}
		if _, err := exams.Create(ctx, exam); err != nil {
			return fmt.Errorf("exam %s/%s: %w", e.Program, e.Course, err)
		}
	}
	for _, r := range fx.Registrations {
		c := model.Candidate{StudentID: r.StudentID, StudentName: r.Name, Program: r.Program, Course: r.Course, Level: r.Level}
		if err := regs.Create(ctx, c); err != nil {
			return fmt.Errorf("registration %s/%s: %w", r.StudentID, r.Course, err)
		}
	}
	for _, u := range fx.Users {
		if _, err := users.Create(ctx, u.Email, u.Password, u.Role, bcryptCost); err != nil {
			if err == repository.ErrEmailExists {
				log.Printf("seed: user %s exists, skipped", u.Email)
				continue
			}
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
	}
	return nil
}

func main() {
	path := flag.String("f", "fixtures.yaml", "YAML fixture file")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.Load()

	fx, err := loadFixture(*path)
	if err != nil {
		log.Fatal(err)
	}
	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatalf("db open (%s): %v", cfg.DBDriver, err)
	}
	defer db.Close()
	if err := database.CreateSchema(db, cfg.DBDriver); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := apply(ctx, db, cfg.DBDriver, fx, cfg.BcryptCost); err != nil {
		log.Fatal(err)
	}
	log.Printf("seed: %d rooms, %d bins, %d exams, %d registrations, %d users",
		len(fx.Rooms), len(fx.Bins), len(fx.Exams), len(fx.Registrations), len(fx.Users))
}
