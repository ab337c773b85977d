// README: Driver aggregate as managed by the admin dashboard.
package driver

import (
	"time"

	"kiloadmin/internal/types"
)

type Driver struct {
	ID                   types.ID    `json:"id"`
	DriverID             string      `json:"driver_id"`
	Name                 string      `json:"name"`
	Phone                string      `json:"phone"`
	VehicleNumber        string      `json:"vehicle_number"`
	VehicleModel         *string     `json:"vehicle_model"`
	DrivingLicenseNumber *string     `json:"driving_license_number"`
	Address              *string     `json:"address"`
	AddressLat           *float64    `json:"address_lat,omitempty"`
	AddressLng           *float64    `json:"address_lng,omitempty"`
	ProfilePictureURL    *string     `json:"profile_picture_url"`
	Balance              types.Money `json:"balance"`
	BirthDate            *time.Time  `json:"birth_date"`
	Disabled             bool        `json:"disabled"`
	Verified             bool        `json:"verified"`
	CreatedAt            time.Time   `json:"created_at"`
	Tier                 TierInfo    `json:"tier"`
}

// NewDriver is what the store persists for a created account.
type NewDriver struct {
	DriverID             string
	Name                 string
	Phone                string
	VehicleNumber        string
	PasswordHash         string
	DrivingLicenseNumber *string
	VehicleModel         *string
	Address              *string
}

// Patch is the set of fields an admin may edit on an existing driver.
type Patch struct {
	Disabled             bool
	DrivingLicenseNumber *string
	VehicleModel         *string
	Address              *string
	Verified             bool
}

type Point struct {
	Lat float64
	Lng float64
}
