// Package testing provides test utilities and database setup for testing the location tracker
package testing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hendarSu/locationtracker/models"
	"github.com/hendarSu/locationtracker/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain password of users created by CreateTestUser
const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a user whose password is TestPassword
func (tf *TestFixtures) CreateTestUser(username string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestLink creates a tracking link with a random id, created at createdAt
func (tf *TestFixtures) CreateTestLink(phoneNumber string, createdAt time.Time) (*models.TrackingLink, error) {
	return tf.CreateTestLinkWithID(randomID(), phoneNumber, createdAt)
}

// CreateTestLinkWithID creates a tracking link using the given id
func (tf *TestFixtures) CreateTestLinkWithID(id, phoneNumber string, createdAt time.Time) (*models.TrackingLink, error) {
	link := models.TrackingLinkBase{
		ID:          id,
		PhoneNumber: phoneNumber,
		CreatedBy:   "fixture",
		CreatedAt:   createdAt.UTC(),
	}
	if err := tf.DB.DB.Create(&link).Error; err != nil {
		return nil, fmt.Errorf("failed to create test link: %w", err)
	}
	return &models.TrackingLink{
		ID:          link.ID,
		PhoneNumber: link.PhoneNumber,
		CreatedBy:   link.CreatedBy,
		CreatedAt:   link.CreatedAt,
	}, nil
}

// CreateTestLocation records a capture for the link at the given time
func (tf *TestFixtures) CreateTestLocation(trackingID, phoneNumber string, capturedAt time.Time) (*models.LocationRecord, error) {
	record := &models.LocationRecord{
		TrackingID:  trackingID,
		PhoneNumber: phoneNumber,
		Latitude:    -6.2088,
		Longitude:   106.8456,
		Browser:     utils.ToPtr("fixture-agent"),
		Timestamp:   capturedAt.UTC(),
	}
	if err := tf.DB.DB.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create test location: %w", err)
	}
	return record, nil
}

func randomID() string {
	b := make([]byte, utils.RandomLinkIDBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
