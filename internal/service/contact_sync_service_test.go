package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
	"github.com/noah-isme/alumnos-crm-api/pkg/contacts"
	appErrors "github.com/noah-isme/alumnos-crm-api/pkg/errors"
)

type contactSourceStub struct {
	configured bool
	pages      []contacts.Page
	failAfter  int
}

func (c *contactSourceStub) Configured() bool { return c.configured }

func (c *contactSourceStub) Each(_ context.Context, fn func(contacts.Page) error) error {
	for i, page := range c.pages {
		if c.failAfter > 0 && i == c.failAfter {
			return errBoom
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

func syncConfig() ContactSyncConfig {
	return ContactSyncConfig{StudentTag: "ALUMNO_SISTEMA", InactiveTagMarker: "inactivo"}
}

func TestContactSync(t *testing.T) {
	store := newStudentStore(models.Student{ID: 1, Email: "ana@example.com", FullName: "Ana", Status: models.StudentStatusAtRisk})
	source := &contactSourceStub{configured: true, pages: []contacts.Page{
		{Contacts: []contacts.Contact{
			{ID: "c1", Email: "ANA@example.com", ContactName: "Ana Torres", Tags: []string{"alumno_sistema"}},
			{ID: "c2", Email: "luis@example.com", FirstName: "Luis", LastName: "Pérez", Tags: []string{"ALUMNO_SISTEMA", "Alumno Inactivo"}},
			{ID: "c3", Email: "lead@example.com", Tags: []string{"lead"}},
		}},
		{Contacts: []contacts.Contact{
			{ID: "c4", Email: "", Tags: []string{"ALUMNO_SISTEMA"}},
			{ID: "c5", Email: "maria@example.com", Tags: []string{"ALUMNO_SISTEMA"}},
		}},
	}}
	svc := NewContactSyncService(source, store, nil, syncConfig())

	res, err := svc.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 3, res.Saved)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Failed)

	ana, err := store.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana Torres", ana.FullName)
	assert.Equal(t, models.StudentStatusAtRisk, ana.Status, "existing status is kept")

	luis, err := store.FindByEmail(context.Background(), "luis@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Luis Pérez", luis.FullName)
	assert.Equal(t, models.StudentStatusInactive, luis.Status)
	require.NotNil(t, luis.ExternalContactID)
	assert.Equal(t, "c2", *luis.ExternalContactID)

	maria, err := store.FindByEmail(context.Background(), "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", maria.FullName)
	assert.Equal(t, models.StudentStatusActive, maria.Status)
}

func TestContactSyncPageFailureKeepsPartialTotals(t *testing.T) {
	source := &contactSourceStub{configured: true, failAfter: 1, pages: []contacts.Page{
		{Contacts: []contacts.Contact{{Email: "a@example.com", Tags: []string{"ALUMNO_SISTEMA"}}}},
		{Contacts: []contacts.Contact{{Email: "b@example.com", Tags: []string{"ALUMNO_SISTEMA"}}}},
	}}
	svc := NewContactSyncService(source, newStudentStore(), nil, syncConfig())

	res, err := svc.Sync(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Saved)
	assert.NotEmpty(t, res.Error)
}

func TestContactSyncNotConfigured(t *testing.T) {
	svc := NewContactSyncService(&contactSourceStub{}, newStudentStore(), nil, syncConfig())
	_, err := svc.Sync(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrServiceUnavailable)
}
