package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin       = "admin"
	RoleDistributor = "distributor"
	RoleRetailer    = "retailer"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Image slots a certificate can carry.
var ImageTypes = []string{"front", "back", "side1", "side2"}

func ValidImageType(t string) bool {
	for _, v := range ImageTypes {
		if v == t {
			return true
		}
	}
	return false
}

func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleDistributor || r == RoleRetailer
}

type User struct {
	ID            string    `gorm:"primaryKey;size:36"       json:"id"`
	Username      string    `gorm:"unique;not null;size:150" json:"username"`
	PasswordHash  string    `gorm:"not null"                 json:"-"`
	Role          string    `gorm:"not null;index;size:32"   json:"role"`
	ParentID      string    `gorm:"index;size:36"            json:"parent_id,omitempty"`
	CreatedBy     string    `gorm:"size:36"                  json:"created_by,omitempty"`
	CompanyName   string    `json:"company_name,omitempty"`
	ContactNumber string    `json:"contact_number,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type VehicleDetails struct {
	RegistrationNo   string `json:"registration_no"`
	ChassisNo        string `json:"chassis_no"`
	VehicleMake      string `json:"vehicle_make"`
	VehicleModel     string `json:"vehicle_model"`
	RegistrationYear int    `json:"registration_year"`
	EngineNo         string `json:"engine_no"`
}

type OwnerDetails struct {
	OwnerName     string `json:"owner_name"`
	ContactNumber string `json:"contact_number"`
}

// FitmentDetails records tape lengths in meters and rear marking plate counts.
type FitmentDetails struct {
	Red20mm    float64 `json:"red_20mm"`
	White20mm  float64 `json:"white_20mm"`
	Yellow20mm float64 `json:"yellow_20mm"`
	Red50mm    float64 `json:"red_50mm"`
	White50mm  float64 `json:"white_50mm"`
	Yellow50mm float64 `json:"yellow_50mm"`
	C3Plates   int     `json:"c3_plates"`
	C4Plates   int     `json:"c4_plates"`
}

// ImageSet maps an image type (front, back, side1, side2) to a base64 payload.
type ImageSet map[string]string

func (v VehicleDetails) Value() (driver.Value, error) { return jsonValue(v) }
func (v *VehicleDetails) Scan(src any) error          { return jsonScan(src, v) }

func (o OwnerDetails) Value() (driver.Value, error) { return jsonValue(o) }
func (o *OwnerDetails) Scan(src any) error          { return jsonScan(src, o) }

func (f FitmentDetails) Value() (driver.Value, error) { return jsonValue(f) }
func (f *FitmentDetails) Scan(src any) error          { return jsonScan(src, f) }

func (s ImageSet) Value() (driver.Value, error) {
	if s == nil {
		s = ImageSet{}
	}
	return jsonValue(s)
}
func (s *ImageSet) Scan(src any) error { return jsonScan(src, s) }

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src, dst any) error {
	switch data := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

type Certificate struct {
	ID             string         `gorm:"primaryKey;size:36"      json:"id"`
	CertificateNo  string         `gorm:"unique;not null;size:32" json:"certificate_no"`
	RetailerID     string         `gorm:"index;not null;size:36"  json:"retailer_id"`
	DealerName     string         `gorm:"not null"                json:"dealer_name"`
	DealerLicense  string         `gorm:"not null"                json:"dealer_license"`
	VehicleDetails VehicleDetails `gorm:"type:jsonb"              json:"vehicle_details"`
	OwnerDetails   OwnerDetails   `gorm:"type:jsonb"              json:"owner_details"`
	FitmentDetails FitmentDetails `gorm:"type:jsonb"              json:"fitment_details"`
	Images         ImageSet       `gorm:"type:jsonb"              json:"images"`
	Status         string         `gorm:"not null;index;size:32"  json:"status"`
	FitmentDate    time.Time      `json:"fitment_date"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CertificateNo == "" {
		c.CertificateNo = NewCertificateNo()
	}
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if c.Images == nil {
		c.Images = ImageSet{}
	}
	if c.FitmentDate.IsZero() {
		c.FitmentDate = time.Now().UTC()
	}
	return nil
}

// NewCertificateNo returns an opaque unique certificate number.
func NewCertificateNo() string {
	return "CERT" + strings.ToUpper(uuid.NewString()[:8])
}
