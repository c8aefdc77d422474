package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medagenda/citas-api/internal/dto"
	"github.com/medagenda/citas-api/internal/models"
	"github.com/medagenda/citas-api/internal/scheduling"
	appErrors "github.com/medagenda/citas-api/pkg/errors"
)

type fakeDoctorStore struct {
	doctors map[string]*models.Doctor
}

func (f *fakeDoctorStore) List(_ context.Context) ([]models.DoctorDetail, error) {
	return nil, nil
}

func (f *fakeDoctorStore) FindByID(_ context.Context, id string) (*models.Doctor, error) {
	if d, ok := f.doctors[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDoctorStore) FindByRoom(_ context.Context, roomID, excludeID string) (*models.Doctor, error) {
	for _, d := range f.doctors {
		if d.ID == excludeID {
			continue
		}
		if d.RoomID != nil && *d.RoomID == roomID {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDoctorStore) Create(_ context.Context, doctor *models.Doctor) error {
	doctor.ID = "doc-created"
	f.doctors[doctor.ID] = doctor
	return nil
}

func (f *fakeDoctorStore) Update(_ context.Context, doctor *models.Doctor) error {
	f.doctors[doctor.ID] = doctor
	return nil
}

func (f *fakeDoctorStore) Delete(_ context.Context, id string) error {
	delete(f.doctors, id)
	return nil
}

type fakeDoctorSpecialties struct {
	specialties map[string]*models.Specialty
}

func (f *fakeDoctorSpecialties) FindByID(_ context.Context, id string) (*models.Specialty, error) {
	if sp, ok := f.specialties[id]; ok {
		return sp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeDoctorRooms struct {
	rooms map[string]*models.Room
}

func (f *fakeDoctorRooms) FindByID(_ context.Context, id string) (*models.Room, error) {
	if r, ok := f.rooms[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func newDoctorServiceForTest() (*DoctorService, *fakeDoctorStore) {
	repo := &fakeDoctorStore{doctors: map[string]*models.Doctor{}}
	specialties := &fakeDoctorSpecialties{specialties: map[string]*models.Specialty{
		"spec-cardio": {ID: "spec-cardio", Name: "Cardiología", DurationMinutes: 30},
	}}
	rooms := &fakeDoctorRooms{rooms: map[string]*models.Room{
		"room-101": {ID: "room-101", Number: 101, Type: scheduling.TypeInternal, Active: true},
	}}
	return NewDoctorService(repo, specialties, rooms, nil, zap.NewNop()), repo
}

func TestCreateDoctorWithoutSpecialty(t *testing.T) {
	svc, repo := newDoctorServiceForTest()

	doctor, err := svc.Create(context.Background(), dto.DoctorRequest{
		UserID:   "user-1",
		FullName: "Dr. Vega",
		Type:     scheduling.TypeInternal,
		RoomID:   strPtr("room-101"),
	})
	require.NoError(t, err)
	assert.Nil(t, doctor.SpecialtyID)
	assert.Contains(t, repo.doctors, doctor.ID)
}

func TestCreateDoctorUnknownSpecialtyRejected(t *testing.T) {
	svc, _ := newDoctorServiceForTest()

	_, err := svc.Create(context.Background(), dto.DoctorRequest{
		UserID:      "user-1",
		FullName:    "Dr. Vega",
		SpecialtyID: strPtr("spec-missing"),
		Type:        scheduling.TypeInternal,
		RoomID:      strPtr("room-101"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateInternalDoctorRequiresRoom(t *testing.T) {
	svc, _ := newDoctorServiceForTest()

	_, err := svc.Create(context.Background(), dto.DoctorRequest{
		UserID:      "user-1",
		FullName:    "Dr. Vega",
		SpecialtyID: strPtr("spec-cardio"),
		Type:        scheduling.TypeInternal,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateExternalDoctorRejectsFixedRoom(t *testing.T) {
	svc, _ := newDoctorServiceForTest()

	_, err := svc.Create(context.Background(), dto.DoctorRequest{
		UserID:      "user-1",
		FullName:    "Dr. Vega",
		SpecialtyID: strPtr("spec-cardio"),
		Type:        scheduling.TypeExternal,
		RoomID:      strPtr("room-101"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateDoctorRoomExclusivity(t *testing.T) {
	svc, repo := newDoctorServiceForTest()
	repo.doctors["doc-1"] = &models.Doctor{
		ID: "doc-1", FullName: "Dr. Soto", Type: scheduling.TypeInternal, RoomID: strPtr("room-101"),
	}

	_, err := svc.Create(context.Background(), dto.DoctorRequest{
		UserID:      "user-2",
		FullName:    "Dr. Vega",
		SpecialtyID: strPtr("spec-cardio"),
		Type:        scheduling.TypeInternal,
		RoomID:      strPtr("room-101"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
