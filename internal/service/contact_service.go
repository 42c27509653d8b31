package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"taskping/internal/model"
	"taskping/internal/repository"
)

// ErrInvalidPhone marks a phone number that cannot be normalized to
// E.164. Surfaced synchronously; nothing is stored.
var ErrInvalidPhone = errors.New("invalid phone number")

// ContactService validates and stores contacts. The messaging chat id
// is derived from the E.164 number, so the same person always maps to
// the same contact row.
type ContactService struct {
	repo   *repository.ContactRepository
	region string
}

func NewContactService(repo *repository.ContactRepository, region string) *ContactService {
	if region == "" {
		region = "IN"
	}
	return &ContactService{repo: repo, region: region}
}

// Upsert validates the phone number and creates or updates the contact
// identified by its derived chat id.
func (s *ContactService) Upsert(ctx context.Context, name, phone, tags, note string) (*model.Contact, error) {
	e164, err := s.toE164(phone)
	if err != nil {
		return nil, err
	}
	contact := &model.Contact{
		Name:      strings.TrimSpace(name),
		PhoneRaw:  phone,
		PhoneE164: e164,
		ChatID:    chatIDFromE164(e164),
		Tags:      strings.TrimSpace(tags),
		Note:      strings.TrimSpace(note),
	}
	return s.repo.UpsertByChatID(ctx, contact)
}

func (s *ContactService) List(ctx context.Context, search, tagContains string) ([]model.Contact, error) {
	return s.repo.List(ctx, strings.TrimSpace(search), strings.TrimSpace(tagContains))
}

func (s *ContactService) Get(ctx context.Context, id uint) (*model.Contact, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ContactService) toE164(raw string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), s.region)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// chatIDFromE164 maps +919876543210 to 919876543210@c.us, the id format
// the WhatsApp gateway expects.
func chatIDFromE164(e164 string) string {
	var digits strings.Builder
	for _, r := range e164 {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String() + "@c.us"
}
