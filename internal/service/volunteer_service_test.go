package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/internal/repository"
)

type mockVolunteerRepo struct {
	items       map[string]*models.Volunteer
	phoneIndex  map[string]string
	deactivated []string
	deleted     []string
	deleteErr   error
}

func (m *mockVolunteerRepo) List(ctx context.Context, filter models.VolunteerFilter) ([]models.Volunteer, int, error) {
	var list []models.Volunteer
	for _, v := range m.items {
		list = append(list, *v)
	}
	return list, len(list), nil
}

func (m *mockVolunteerRepo) FindByID(ctx context.Context, id string) (*models.Volunteer, error) {
	if v, ok := m.items[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVolunteerRepo) FindByPhone(ctx context.Context, phone string) (*models.Volunteer, error) {
	if id, ok := m.phoneIndex[phone]; ok {
		return m.items[id], nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVolunteerRepo) Create(ctx context.Context, volunteer *models.Volunteer) error {
	if m.items == nil {
		m.items = map[string]*models.Volunteer{}
	}
	if m.phoneIndex == nil {
		m.phoneIndex = map[string]string{}
	}
	if volunteer.ID == "" {
		volunteer.ID = "generated"
	}
	cp := *volunteer
	m.items[volunteer.ID] = &cp
	m.phoneIndex[volunteer.Phone] = volunteer.ID
	return nil
}

func (m *mockVolunteerRepo) Update(ctx context.Context, volunteer *models.Volunteer) error {
	cp := *volunteer
	m.items[volunteer.ID] = &cp
	return nil
}

func (m *mockVolunteerRepo) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	if v, ok := m.items[id]; ok {
		v.PINHash = pinHash
	}
	return nil
}

func (m *mockVolunteerRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if v, ok := m.items[id]; ok {
		v.Active = false
	}
	return nil
}

func (m *mockVolunteerRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func TestVolunteerServiceCreate(t *testing.T) {
	repo := &mockVolunteerRepo{}
	svc := NewVolunteerService(repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), dto.CreateVolunteerRequest{
		Phone: "(11) 99999-0000",
		PIN:   "1234",
		Name:  "Ana",
		Role:  "professor",
		Room:  strPtr("bebes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "11999990000", created.Phone)
	assert.Equal(t, models.RoleProfessor, created.Role)
	require.NotNil(t, created.Room)
	assert.Equal(t, models.RoomBebes, *created.Room)
	assert.True(t, created.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PINHash), []byte("1234")))
}

func TestVolunteerServiceCreateDuplicatePhone(t *testing.T) {
	repo := &mockVolunteerRepo{}
	svc := NewVolunteerService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateVolunteerRequest{
		Phone: "11999990000", PIN: "1234", Name: "Ana", Role: "professor",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), dto.CreateVolunteerRequest{
		Phone: "11 99999 0000", PIN: "5678", Name: "Outra", Role: "auxiliar",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestVolunteerServiceCreateRejectsUnificadaRoom(t *testing.T) {
	svc := NewVolunteerService(&mockVolunteerRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateVolunteerRequest{
		Phone: "11999990000", PIN: "1234", Name: "Ana", Role: "professor", Room: strPtr("unificada"),
	})
	require.Error(t, err)
}

func TestVolunteerServiceDeleteFallsBackToDeactivate(t *testing.T) {
	repo := &mockVolunteerRepo{
		items:     map[string]*models.Volunteer{"v1": {ID: "v1", Name: "Ana", Active: true}},
		deleteErr: repository.ErrForeignKeyViolation,
	}
	svc := NewVolunteerService(repo, validator.New(), zap.NewNop())

	result, err := svc.Delete(context.Background(), "v1")
	require.NoError(t, err)
	assert.False(t, result.Deleted)
	assert.True(t, result.Deactivated)
	assert.Equal(t, []string{"v1"}, repo.deactivated)
	assert.False(t, repo.items["v1"].Active)
}

func TestVolunteerServiceDeleteHard(t *testing.T) {
	repo := &mockVolunteerRepo{
		items: map[string]*models.Volunteer{"v1": {ID: "v1", Name: "Ana", Active: true}},
	}
	svc := NewVolunteerService(repo, validator.New(), zap.NewNop())

	result, err := svc.Delete(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Empty(t, repo.deactivated)
}

func TestVolunteerServiceDeleteMissing(t *testing.T) {
	svc := NewVolunteerService(&mockVolunteerRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestVolunteerServiceUpdateClearsRoom(t *testing.T) {
	room := models.RoomBebes
	repo := &mockVolunteerRepo{
		items: map[string]*models.Volunteer{"v1": {ID: "v1", Name: "Ana", Role: models.RoleProfessor, Room: &room, Active: true}},
	}
	svc := NewVolunteerService(repo, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "v1", dto.UpdateVolunteerRequest{Room: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Room)
}

func strPtr(s string) *string {
	return &s
}
