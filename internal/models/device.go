package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultDeviceStatus    = "active"
	DefaultFirmwareVersion = "1.0.0"
)

// DeviceLocation is where a unit is installed. Every field is optional.
type DeviceLocation struct {
	Address   string `json:"address,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// Device is a registered softener unit. A device belongs to exactly one User
// at any time.
type Device struct {
	Base
	// DeviceID is the serial printed on the unit, stored uppercase.
	DeviceID        string         `gorm:"uniqueIndex" json:"device_id" example:"RO22D481"`
	Model           string         `json:"model" example:"AquaSoft 2000"`
	Location        DeviceLocation `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Status          string         `json:"status" example:"active"`
	FirmwareVersion string         `json:"firmware_version" example:"1.0.0"`
	OwnerID         uuid.UUID      `json:"owner_id"`
	// OwnerUUID is a copy of the owner's customer UUID, recomputed from the
	// current owner on every create and update. It is a cache, not a source
	// of truth.
	OwnerUUID    string      `json:"owner_uuid"`
	Owner        *DeviceOwner `gorm:"-" json:"owner,omitempty"`
	RegisteredAt time.Time   `json:"registered_at"`
	LastSeenAt   time.Time   `json:"last_seen_at"`
}

// DeviceOwner is the owner identity expanded onto list and get responses.
type DeviceOwner struct {
	FullName string `json:"full_name"`
	UUID     string `json:"uuid"`
}

// AddDevice is the information needed to register a new Device.
type AddDevice struct {
	DeviceID        string    `json:"device_id" example:"ro22d481"`
	Model           string    `json:"model" example:"AquaSoft 2000"`
	Address         string    `json:"address,omitempty"`
	Latitude        string    `json:"latitude,omitempty"`
	Longitude       string    `json:"longitude,omitempty"`
	OwnerID         uuid.UUID `json:"owner_id"`
	Status          string    `json:"status,omitempty"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
}

// UpdateDevice carries the same fields as AddDevice; the owner reference is
// re-resolved on every update since ownership may change.
type UpdateDevice = AddDevice

// DeviceLogin looks up a device by its serial.
type DeviceLogin struct {
	DeviceID string `json:"device_id" example:"RO22D481"`
}
