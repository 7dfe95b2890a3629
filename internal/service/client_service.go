package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// ClientService handles client registry operations.
type ClientService struct {
	clientRepo repository.ClientRepository
	logger     zerolog.Logger
}

// NewClientService creates a new ClientService.
func NewClientService(clientRepo repository.ClientRepository, logger zerolog.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		logger:     logger.With().Str("service", "client").Logger(),
	}
}

// CreateClientInput contains the data needed to register a client.
type CreateClientInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// UpdateClientInput contains the data needed to update a client.
type UpdateClientInput struct {
	ID int64
	CreateClientInput
}

// Create registers a new client.
func (s *ClientService) Create(ctx context.Context, input CreateClientInput) (*domain.Client, error) {
	now := time.Now().UTC()
	client := &domain.Client{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     strings.TrimSpace(input.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := client.Validate(); err != nil {
		return nil, err
	}

	// Early rejection; the unique index is the real backstop.
	taken, err := s.clientRepo.ExistsByEmail(ctx, client.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, client.Email)
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("client_id", client.ID).
		Str("email", client.Email).
		Msg("client registered")

	return client, nil
}

// Get retrieves a client by ID.
func (s *ClientService) Get(ctx context.Context, id int64) (*domain.Client, error) {
	return s.clientRepo.GetByID(ctx, id)
}

// List returns clients with pagination.
func (s *ClientService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Client], error) {
	return s.clientRepo.List(ctx, opts)
}

// Update changes a client's attributes.
func (s *ClientService) Update(ctx context.Context, input UpdateClientInput) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	client.FirstName = strings.TrimSpace(input.FirstName)
	client.LastName = strings.TrimSpace(input.LastName)
	client.Email = strings.ToLower(strings.TrimSpace(input.Email))
	client.Phone = strings.TrimSpace(input.Phone)
	client.UpdatedAt = time.Now().UTC()

	if err := client.Validate(); err != nil {
		return nil, err
	}

	// Self-exclusion: the client keeping its own email is fine.
	taken, err := s.clientRepo.ExistsByEmail(ctx, client.Email, client.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, client.Email)
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}

	return client, nil
}

// Delete removes a client.
func (s *ClientService) Delete(ctx context.Context, id int64) error {
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("client_id", id).Msg("client deleted")
	return nil
}
