package services

import (
	"database/sql"
	"errors"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/store"
	"github.com/aiqalab/redteam-console/utils"
)

// ClientService manages client records and keeps the coordinator's runtime
// set in step with them.
type ClientService struct {
	store       *store.Store
	coordinator *GlobalCoordinator
	logger      *utils.Logger
}

// NewClientService creates the client service.
func NewClientService(st *store.Store, coordinator *GlobalCoordinator, logger *utils.Logger) *ClientService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &ClientService{
		store:       st,
		coordinator: coordinator,
		logger:      logger.WithSource("client_service"),
	}
}

// LoadAll registers a runtime for every stored client. Called once at
// startup so counters start from zero on each process start.
func (s *ClientService) LoadAll() error {
	clients, err := s.store.ListClients()
	if err != nil {
		return err
	}
	for _, c := range clients {
		s.coordinator.Register(c)
	}
	s.logger.Info("Clients loaded", map[string]interface{}{"count": len(clients)})
	return nil
}

// List returns all clients, newest first.
func (s *ClientService) List() ([]models.Client, error) {
	return s.store.ListClients()
}

// Get returns one client with its linked test cases.
func (s *ClientService) Get(id string) (*models.Client, error) {
	c, err := s.store.GetClient(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	return c, err
}

// Create stores a new client and registers its runtime.
func (s *ClientService) Create(req *models.ClientRequest) (*models.Client, error) {
	c := &models.Client{
		Name:                req.Name,
		Category:            req.Category,
		Prompt:              req.Prompt,
		MaxMessages:         req.MaxMessages,
		UseRandomGeneration: req.UseRandomGeneration,
	}
	if err := s.store.CreateClient(c, req.TestCaseIDs); err != nil {
		return nil, err
	}

	full, err := s.store.GetClient(c.ID)
	if err != nil {
		return nil, err
	}
	s.coordinator.Register(*full)
	s.logger.Info("Client created", map[string]interface{}{"client_id": c.ID, "name": c.Name})
	return full, nil
}

// Update edits a client and applies the new configuration to its live
// runtime. Counters and transcript are kept; only a reset clears them.
func (s *ClientService) Update(id string, req *models.ClientRequest) (*models.Client, error) {
	c := &models.Client{
		ID:                  id,
		Name:                req.Name,
		Category:            req.Category,
		Prompt:              req.Prompt,
		MaxMessages:         req.MaxMessages,
		UseRandomGeneration: req.UseRandomGeneration,
	}
	if err := s.store.UpdateClient(c, req.TestCaseIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	full, err := s.store.GetClient(id)
	if err != nil {
		return nil, err
	}
	s.coordinator.Register(*full)
	s.logger.Info("Client updated", map[string]interface{}{"client_id": id})
	return full, nil
}

// Delete removes a client, its links, and its runtime.
func (s *ClientService) Delete(id string) error {
	if err := s.store.DeleteClient(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrClientNotFound
		}
		return err
	}
	s.coordinator.Dispose(id)
	s.logger.Info("Client deleted", map[string]interface{}{"client_id": id})
	return nil
}
