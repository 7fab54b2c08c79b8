package messaging

import (
	"context"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/domain/messaging"
	"github.com/chatrelay/backend/internal/domain/shared"
)

// ContactService handles contact management
type ContactService struct {
	contactRepo messaging.ContactRepository
}

// NewContactService creates a new ContactService
func NewContactService(contactRepo messaging.ContactRepository) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
	}
}

// Create creates a new contact
func (s *ContactService) Create(ctx context.Context, req CreateContactRequest) (*ContactResponse, error) {
	existing, err := s.contactRepo.FindByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A contact with this phone number already exists")
	}

	contact, err := messaging.NewContact(req.Name, req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if req.Email != "" || req.Notes != "" {
		if err := contact.Update(req.Name, req.Email, req.Notes); err != nil {
			return nil, err
		}
	}

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}

	response := ToContactResponse(contact)
	return &response, nil
}

// GetByID retrieves a contact by ID
func (s *ContactService) GetByID(ctx context.Context, contactID uuid.UUID) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, contactID)
	if err != nil {
		return nil, err
	}

	response := ToContactResponse(contact)
	return &response, nil
}

// List retrieves contacts with filtering and pagination
func (s *ContactService) List(ctx context.Context, filter ContactListFilter) ([]ContactResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	contacts, err := s.contactRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.contactRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToContactResponses(contacts), total, nil
}

// Update updates a contact
func (s *ContactService) Update(ctx context.Context, contactID uuid.UUID, req UpdateContactRequest) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, contactID)
	if err != nil {
		return nil, err
	}

	name := contact.Name
	if req.Name != nil {
		name = *req.Name
	}
	email := contact.Email
	if req.Email != nil {
		email = *req.Email
	}
	notes := contact.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	if err := contact.Update(name, email, notes); err != nil {
		return nil, err
	}

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}

	response := ToContactResponse(contact)
	return &response, nil
}

// Delete removes a contact
func (s *ContactService) Delete(ctx context.Context, contactID uuid.UUID) error {
	if _, err := s.contactRepo.FindByID(ctx, contactID); err != nil {
		return err
	}
	return s.contactRepo.Delete(ctx, contactID)
}
