package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskping/internal/model"
)

// ContactRepository handles CRUD for contacts.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// UpsertByChatID finds a contact by its messaging chat id and updates it,
// or creates a new one. The chat id is derived from the phone number, so
// re-saving the same person never produces a duplicate row.
func (r *ContactRepository) UpsertByChatID(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	var existing model.Contact
	db := r.db.WithContext(ctx)
	err := db.Where("chat_id = ?", c.ChatID).First(&existing).Error
	switch {
	case err == nil:
		if c.Name != "" {
			existing.Name = c.Name
		}
		existing.PhoneRaw = c.PhoneRaw
		existing.PhoneE164 = c.PhoneE164
		if c.Tags != "" {
			existing.Tags = c.Tags
		}
		if c.Note != "" {
			existing.Note = c.Note
		}
		if err := db.Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("update contact: %w", err)
		}
		return &existing, nil
	case err == gorm.ErrRecordNotFound:
		if err := db.Create(c).Error; err != nil {
			return nil, fmt.Errorf("create contact: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("find contact: %w", err)
	}
}

func (r *ContactRepository) GetByID(ctx context.Context, id uint) (*model.Contact, error) {
	var contact model.Contact
	if err := r.db.WithContext(ctx).First(&contact, id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

// List returns contacts ordered by name, optionally filtered by a free
// text search over name/phone/note and a tag substring.
func (r *ContactRepository) List(ctx context.Context, search, tagContains string) ([]model.Contact, error) {
	q := r.db.WithContext(ctx).Model(&model.Contact{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR phone_e164 LIKE ? OR note LIKE ?", like, like, like)
	}
	if tagContains != "" {
		q = q.Where("tags LIKE ?", "%"+tagContains+"%")
	}
	var contacts []model.Contact
	if err := q.Order("name ASC").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}
