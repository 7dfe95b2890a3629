package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
	"github.com/meridian-motors/meridian-backoffice/internal/storage"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockVehicleRepository is a map-backed implementation of
// repository.VehicleRepository. UpdateStatus honors the version check so
// optimistic-concurrency paths are exercised for real.
type MockVehicleRepository struct {
	vehicles  map[int64]*domain.Vehicle
	nextID    int64
	getErr    error
	updateErr error

	// statusWrites counts version-conditional status writes.
	statusWrites int
}

func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[int64]*domain.Vehicle),
		nextID:   1,
	}
}

// Add seeds a vehicle, assigning an ID if it has none.
func (m *MockVehicleRepository) Add(v *domain.Vehicle) *domain.Vehicle {
	if v.ID == 0 {
		v.ID = m.nextID
		m.nextID++
	} else if v.ID >= m.nextID {
		m.nextID = v.ID + 1
	}
	if v.Version == 0 {
		v.Version = 1
	}
	m.vehicles[v.ID] = v
	return v
}

func (m *MockVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	for _, v := range m.vehicles {
		if v.Chassis == vehicle.Chassis {
			return domain.ErrChassisTaken
		}
	}
	vehicle.ID = m.nextID
	m.nextID++
	m.vehicles[vehicle.ID] = vehicle
	return nil
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.vehicles[id]
	if !ok {
		return nil, domain.ErrVehicleNotFound
	}
	clone := *v
	return &clone, nil
}

func (m *MockVehicleRepository) GetByChassis(ctx context.Context, chassis string) (*domain.Vehicle, error) {
	for _, v := range m.vehicles {
		if v.Chassis == chassis {
			clone := *v
			return &clone, nil
		}
	}
	return nil, domain.ErrVehicleNotFound
}

func (m *MockVehicleRepository) Search(ctx context.Context, filter domain.VehicleFilter, opts repository.ListOptions) (*repository.ListResult[domain.Vehicle], error) {
	var items []*domain.Vehicle
	for _, v := range m.vehicles {
		if filter.Brand != "" && v.Brand != filter.Brand {
			continue
		}
		if filter.Model != "" && v.Model != filter.Model {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		if filter.MaxPrice > 0 && v.Price > filter.MaxPrice {
			continue
		}
		clone := *v
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.ListResult[domain.Vehicle]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockVehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) error {
	stored, ok := m.vehicles[vehicle.ID]
	if !ok {
		return domain.ErrVehicleNotFound
	}
	clone := *vehicle
	clone.Status = stored.Status
	clone.Version = stored.Version
	m.vehicles[vehicle.ID] = &clone
	return nil
}

func (m *MockVehicleRepository) UpdateStatus(ctx context.Context, id int64, status domain.VehicleStatus, expectedVersion int64) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	v, ok := m.vehicles[id]
	if !ok {
		return domain.ErrVehicleNotFound
	}
	if v.Version != expectedVersion {
		return fmt.Errorf("%w: vehicle %d version %d", domain.ErrVersionConflict, id, expectedVersion)
	}
	v.Status = status
	v.Version++
	v.UpdatedAt = time.Now().UTC()
	m.statusWrites++
	return nil
}

func (m *MockVehicleRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.vehicles[id]; !ok {
		return domain.ErrVehicleNotFound
	}
	delete(m.vehicles, id)
	return nil
}

func (m *MockVehicleRepository) ExistsByChassis(ctx context.Context, chassis string, excludeID int64) (bool, error) {
	for _, v := range m.vehicles {
		if v.Chassis == chassis && v.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// MockClientRepository is a map-backed implementation of
// repository.ClientRepository.
type MockClientRepository struct {
	clients map[int64]*domain.Client
	nextID  int64
}

func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{
		clients: make(map[int64]*domain.Client),
		nextID:  1,
	}
}

func (m *MockClientRepository) Add(c *domain.Client) *domain.Client {
	if c.ID == 0 {
		c.ID = m.nextID
		m.nextID++
	} else if c.ID >= m.nextID {
		m.nextID = c.ID + 1
	}
	m.clients[c.ID] = c
	return c
}

func (m *MockClientRepository) Create(ctx context.Context, client *domain.Client) error {
	for _, c := range m.clients {
		if c.Email == client.Email {
			return domain.ErrEmailTaken
		}
	}
	client.ID = m.nextID
	m.nextID++
	m.clients[client.ID] = client
	return nil
}

func (m *MockClientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *MockClientRepository) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	for _, c := range m.clients {
		if c.Email == email {
			clone := *c
			return &clone, nil
		}
	}
	return nil, domain.ErrClientNotFound
}

func (m *MockClientRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Client], error) {
	var items []*domain.Client
	for _, c := range m.clients {
		clone := *c
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.ListResult[domain.Client]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockClientRepository) Update(ctx context.Context, client *domain.Client) error {
	if _, ok := m.clients[client.ID]; !ok {
		return domain.ErrClientNotFound
	}
	clone := *client
	m.clients[client.ID] = &clone
	return nil
}

func (m *MockClientRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.clients[id]; !ok {
		return domain.ErrClientNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *MockClientRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	for _, c := range m.clients {
		if c.Email == email && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// MockSaleRepository is a map-backed implementation of repository.SaleRepository.
type MockSaleRepository struct {
	sales     map[int64]*domain.Sale
	nextID    int64
	createErr error
}

func NewMockSaleRepository() *MockSaleRepository {
	return &MockSaleRepository{
		sales:  make(map[int64]*domain.Sale),
		nextID: 1,
	}
}

func (m *MockSaleRepository) Add(s *domain.Sale) *domain.Sale {
	if s.ID == 0 {
		s.ID = m.nextID
		m.nextID++
	} else if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	m.sales[s.ID] = s
	return s
}

func (m *MockSaleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	if m.createErr != nil {
		return m.createErr
	}
	sale.ID = m.nextID
	m.nextID++
	clone := *sale
	m.sales[sale.ID] = &clone
	return nil
}

func (m *MockSaleRepository) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return nil, domain.ErrSaleNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockSaleRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Sale], error) {
	var items []*domain.Sale
	for _, s := range m.sales {
		clone := *s
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.ListResult[domain.Sale]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockSaleRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Sale, error) {
	var items []*domain.Sale
	for _, s := range m.sales {
		if s.VehicleID == vehicleID {
			clone := *s
			items = append(items, &clone)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MockSaleRepository) Update(ctx context.Context, sale *domain.Sale) error {
	if _, ok := m.sales[sale.ID]; !ok {
		return domain.ErrSaleNotFound
	}
	clone := *sale
	m.sales[sale.ID] = &clone
	return nil
}

// MockFinancingRepository is a map-backed implementation of
// repository.FinancingRepository.
type MockFinancingRepository struct {
	financings map[int64]*domain.Financing
	nextID     int64
}

func NewMockFinancingRepository() *MockFinancingRepository {
	return &MockFinancingRepository{
		financings: make(map[int64]*domain.Financing),
		nextID:     1,
	}
}

func (m *MockFinancingRepository) Add(f *domain.Financing) *domain.Financing {
	if f.ID == 0 {
		f.ID = m.nextID
		m.nextID++
	} else if f.ID >= m.nextID {
		m.nextID = f.ID + 1
	}
	m.financings[f.ID] = f
	return f
}

func (m *MockFinancingRepository) Create(ctx context.Context, financing *domain.Financing) error {
	for _, f := range m.financings {
		if f.VehicleID == financing.VehicleID && f.Status != domain.FinancingCanceled {
			return domain.ErrFinancingActiveExists
		}
	}
	financing.ID = m.nextID
	m.nextID++
	clone := *financing
	m.financings[financing.ID] = &clone
	return nil
}

func (m *MockFinancingRepository) GetByID(ctx context.Context, id int64) (*domain.Financing, error) {
	f, ok := m.financings[id]
	if !ok {
		return nil, domain.ErrFinancingNotFound
	}
	clone := *f
	return &clone, nil
}

func (m *MockFinancingRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Financing], error) {
	var items []*domain.Financing
	for _, f := range m.financings {
		clone := *f
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.ListResult[domain.Financing]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockFinancingRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Financing, error) {
	var items []*domain.Financing
	for _, f := range m.financings {
		if f.VehicleID == vehicleID {
			clone := *f
			items = append(items, &clone)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MockFinancingRepository) FindActiveByVehicle(ctx context.Context, vehicleID int64) (*domain.Financing, error) {
	for _, f := range m.financings {
		if f.VehicleID == vehicleID && f.Status != domain.FinancingCanceled {
			clone := *f
			return &clone, nil
		}
	}
	return nil, domain.ErrFinancingNotFound
}

func (m *MockFinancingRepository) Update(ctx context.Context, financing *domain.Financing) error {
	if _, ok := m.financings[financing.ID]; !ok {
		return domain.ErrFinancingNotFound
	}
	clone := *financing
	m.financings[financing.ID] = &clone
	return nil
}

// MockMaintenanceRepository is a map-backed implementation of
// repository.MaintenanceRepository.
type MockMaintenanceRepository struct {
	records map[int64]*domain.Maintenance
	nextID  int64
}

func NewMockMaintenanceRepository() *MockMaintenanceRepository {
	return &MockMaintenanceRepository{
		records: make(map[int64]*domain.Maintenance),
		nextID:  1,
	}
}

func (m *MockMaintenanceRepository) Add(rec *domain.Maintenance) *domain.Maintenance {
	if rec.ID == 0 {
		rec.ID = m.nextID
		m.nextID++
	} else if rec.ID >= m.nextID {
		m.nextID = rec.ID + 1
	}
	m.records[rec.ID] = rec
	return rec
}

func (m *MockMaintenanceRepository) Create(ctx context.Context, maintenance *domain.Maintenance) error {
	for _, rec := range m.records {
		if rec.VehicleID == maintenance.VehicleID && rec.EndDate == nil {
			return domain.NewDomainError(domain.ErrVehicleNotAvailable,
				"vehicle already has an open maintenance record", "")
		}
	}
	maintenance.ID = m.nextID
	m.nextID++
	clone := *maintenance
	m.records[maintenance.ID] = &clone
	return nil
}

func (m *MockMaintenanceRepository) GetByID(ctx context.Context, id int64) (*domain.Maintenance, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrMaintenanceNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *MockMaintenanceRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Maintenance], error) {
	var items []*domain.Maintenance
	for _, rec := range m.records {
		clone := *rec
		items = append(items, &clone)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.ListResult[domain.Maintenance]{
		Items:  items,
		Total:  int64(len(items)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockMaintenanceRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Maintenance, error) {
	var items []*domain.Maintenance
	for _, rec := range m.records {
		if rec.VehicleID == vehicleID {
			clone := *rec
			items = append(items, &clone)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MockMaintenanceRepository) FindOpenByVehicle(ctx context.Context, vehicleID int64) (*domain.Maintenance, error) {
	for _, rec := range m.records {
		if rec.VehicleID == vehicleID && rec.EndDate == nil {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, domain.ErrMaintenanceNotFound
}

func (m *MockMaintenanceRepository) Update(ctx context.Context, maintenance *domain.Maintenance) error {
	if _, ok := m.records[maintenance.ID]; !ok {
		return domain.ErrMaintenanceNotFound
	}
	clone := *maintenance
	m.records[maintenance.ID] = &clone
	return nil
}

// MockAttachmentRepository is a map-backed implementation of
// repository.AttachmentRepository.
type MockAttachmentRepository struct {
	attachments map[int64]*domain.Attachment
	nextID      int64
	createErr   error
	deleteErr   error
}

func NewMockAttachmentRepository() *MockAttachmentRepository {
	return &MockAttachmentRepository{
		attachments: make(map[int64]*domain.Attachment),
		nextID:      1,
	}
}

func (m *MockAttachmentRepository) Add(a *domain.Attachment) *domain.Attachment {
	if a.ID == 0 {
		a.ID = m.nextID
		m.nextID++
	} else if a.ID >= m.nextID {
		m.nextID = a.ID + 1
	}
	m.attachments[a.ID] = a
	return a
}

func (m *MockAttachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	if m.createErr != nil {
		return m.createErr
	}
	attachment.ID = m.nextID
	m.nextID++
	clone := *attachment
	m.attachments[attachment.ID] = &clone
	return nil
}

func (m *MockAttachmentRepository) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	a, ok := m.attachments[id]
	if !ok {
		return nil, domain.ErrAttachmentNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *MockAttachmentRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Attachment, error) {
	var items []*domain.Attachment
	for _, a := range m.attachments {
		if a.VehicleID == vehicleID {
			clone := *a
			items = append(items, &clone)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MockAttachmentRepository) UpdateUploadStatus(ctx context.Context, id int64, status domain.UploadStatus) error {
	a, ok := m.attachments[id]
	if !ok {
		return domain.ErrAttachmentNotFound
	}
	a.UploadStatus = status
	return nil
}

func (m *MockAttachmentRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.attachments[id]; !ok {
		return domain.ErrAttachmentNotFound
	}
	delete(m.attachments, id)
	return nil
}

func (m *MockAttachmentRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Attachment, error) {
	var items []*domain.Attachment
	for _, a := range m.attachments {
		if a.UploadStatus == domain.UploadPending && a.CreatedAt.Before(cutoff) {
			clone := *a
			items = append(items, &clone)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// =============================================================================
// Mock Infrastructure
// =============================================================================

// mockTxManager runs the function directly; the mock repositories have no
// transaction semantics to coordinate.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockBackend is an in-memory storage.Backend. The direct flag switches it
// between local-disk-like (direct uploads) and S3-like (presigned) behavior.
type MockBackend struct {
	blobs      map[string][]byte
	direct     bool
	storeErr   error
	deleteErr  error
	presignErr error
}

func NewMockBackend(direct bool) *MockBackend {
	return &MockBackend{
		blobs:  make(map[string][]byte),
		direct: direct,
	}
}

func (m *MockBackend) Store(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if !m.direct {
		return storage.ErrDirectUploadUnsupported
	}
	if m.storeErr != nil {
		return m.storeErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.blobs[key] = data
	return nil
}

func (m *MockBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockBackend) Delete(ctx context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.blobs, key)
	return nil
}

func (m *MockBackend) PublicPath(key string) string {
	return "/files/" + key
}

func (m *MockBackend) SupportsDirectUpload() bool {
	return m.direct
}

func (m *MockBackend) PresignPut(ctx context.Context, key string, contentType string) (*storage.PresignedUpload, error) {
	if m.direct {
		return nil, storage.ErrPresignUnsupported
	}
	if m.presignErr != nil {
		return nil, m.presignErr
	}
	return &storage.PresignedUpload{
		URL:       "https://uploads.example.com/" + key,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": contentType},
		ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
	}, nil
}
