//go:build container

// Package pgtest runs repository tests against a disposable postgres container.
//
// Each package using it wires the container through TestMain:
//
//	func TestMain(m *testing.M) { os.Exit(pgtest.Run(m)) }
//
// and every test gets a freshly migrated database from New.
package pgtest

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"anoa.com/campusfix/internal/bootstrap"
	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/pkg/database"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const (
	image    = "postgres:16-alpine"
	user     = "campusfix"
	password = "campusfix"
)

var (
	baseDSN string
	admin   *gorm.DB
	dbSeq   atomic.Int64
)

// Run starts postgres, runs the package's tests and terminates the container.
func Run(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       "postgres",
			},
			// postgres logs readiness once for the init server and once for the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Printf("pgtest: start postgres: %v", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("pgtest: terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Printf("pgtest: container host: %v", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Printf("pgtest: mapped port: %v", err)
		return 1
	}

	baseDSN = fmt.Sprintf("host=%s port=%s user=%s password=%s sslmode=disable", host, port.Port(), user, password)
	admin, err = database.Connect(baseDSN+" dbname=postgres", false)
	if err != nil {
		log.Printf("pgtest: connect: %v", err)
		return 1
	}

	return m.Run()
}

// New creates an empty, migrated database for one test.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	if admin == nil {
		t.Fatal("pgtest: Run was not called from TestMain")
	}

	name := fmt.Sprintf("campusfix_test_%d", dbSeq.Add(1))
	if err := admin.Exec("CREATE DATABASE " + name).Error; err != nil {
		t.Fatalf("pgtest: create database: %v", err)
	}

	db, err := database.Connect(baseDSN+" dbname="+name, false)
	if err != nil {
		t.Fatalf("pgtest: connect %s: %v", name, err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = admin.Exec("DROP DATABASE IF EXISTS " + name).Error
	})

	if err := bootstrap.Migrate(db); err != nil {
		t.Fatalf("pgtest: migrate: %v", err)
	}
	return db
}

// Department inserts a department with the given code.
func Department(t *testing.T, db *gorm.DB, code string) entity.Department {
	t.Helper()

	dept := entity.Department{Name: code + " department", Code: code}
	if err := db.Create(&dept).Error; err != nil {
		t.Fatalf("pgtest: create department %s: %v", code, err)
	}
	return dept
}

// User inserts a user with a profile and exactly the given roles.
func User(t *testing.T, db *gorm.DB, departmentID *uuid.UUID, roles ...string) entity.User {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	u := entity.User{ID: id, Email: id.String() + "@campus.test", PasswordHash: "x"}
	if err := db.Omit("Profile", "Roles").Create(&u).Error; err != nil {
		t.Fatalf("pgtest: create user: %v", err)
	}

	profile := entity.Profile{
		UserID:       id,
		CollegeID:    "C-" + id.String()[:8],
		FullName:     "Test User",
		Email:        u.Email,
		DepartmentID: departmentID,
	}
	if err := db.Omit("Department").Create(&profile).Error; err != nil {
		t.Fatalf("pgtest: create profile: %v", err)
	}

	for _, role := range roles {
		if err := db.Create(&entity.UserRole{UserID: id, Role: role}).Error; err != nil {
			t.Fatalf("pgtest: grant %s: %v", role, err)
		}
	}
	return u
}
