package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
)

func TestClientService_Create(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateClientInput
		wantErr error
	}{
		{
			name:  "success",
			input: CreateClientInput{FirstName: "Ana", LastName: "Souza", Email: "Ana.Souza@Example.com "},
		},
		{
			name:    "missing first name",
			input:   CreateClientInput{Email: "ana@example.com"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "malformed email",
			input:   CreateClientInput{FirstName: "Ana", Email: "not-an-email"},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockClientRepository()
			svc := NewClientService(repo, zerolog.Nop())

			client, err := svc.Create(context.Background(), tt.input)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "ana.souza@example.com", client.Email, "email is normalized")
			assert.Equal(t, "Ana Souza", client.FullName())
		})
	}
}

func TestClientService_Create_DuplicateEmail(t *testing.T) {
	repo := NewMockClientRepository()
	svc := NewClientService(repo, zerolog.Nop())

	_, err := svc.Create(context.Background(), CreateClientInput{FirstName: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateClientInput{FirstName: "Other", Email: "ANA@example.com"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestClientService_Update_KeepsOwnEmail(t *testing.T) {
	repo := NewMockClientRepository()
	svc := NewClientService(repo, zerolog.Nop())
	client, err := svc.Create(context.Background(), CreateClientInput{FirstName: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), UpdateClientInput{
		ID: client.ID,
		CreateClientInput: CreateClientInput{
			FirstName: "Ana", LastName: "Souza", Email: "ana@example.com", Phone: "+55 11 91234-5678",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Souza", updated.LastName)
}

func TestClientService_Update_EmailCollision(t *testing.T) {
	repo := NewMockClientRepository()
	svc := NewClientService(repo, zerolog.Nop())
	_, err := svc.Create(context.Background(), CreateClientInput{FirstName: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	victim, err := svc.Create(context.Background(), CreateClientInput{FirstName: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateClientInput{
		ID:                victim.ID,
		CreateClientInput: CreateClientInput{FirstName: "Bruno", Email: "ana@example.com"},
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestClientService_Delete(t *testing.T) {
	repo := NewMockClientRepository()
	svc := NewClientService(repo, zerolog.Nop())
	client, err := svc.Create(context.Background(), CreateClientInput{FirstName: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), client.ID))
	_, err = svc.Get(context.Background(), client.ID)
	require.ErrorIs(t, err, domain.ErrClientNotFound)
}
