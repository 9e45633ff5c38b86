package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null"    json:"username"`
	PasswordHash string    `gorm:"not null"                        json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Driver struct {
	ID            uint       `gorm:"primaryKey;autoIncrement"  json:"id"`
	FullName      string     `gorm:"size:255;not null"         json:"fullName"`
	LicenseNumber string     `gorm:"size:255;not null"         json:"licenseNumber"`
	Image         string     `gorm:"size:800"                  json:"image"`
	NationalID    string     `gorm:"size:255"                  json:"nationalID,omitempty"`
	DOB           *time.Time `json:"dob,omitempty"`
	Phone         string     `gorm:"size:50"                   json:"phone,omitempty"`
	Defensive     string     `gorm:"size:255"                  json:"defensive,omitempty"`
	Medical       string     `gorm:"size:255"                  json:"medical,omitempty"`
	LicenceClass  string     `gorm:"size:50"                   json:"licenceClass,omitempty"`
	LicenceYear   int        `json:"licenceYear,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	Vehicles []Vehicle `gorm:"constraint:OnDelete:RESTRICT" json:"vehicles,omitempty"`
}

type Vehicle struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	PlateNumber  string          `gorm:"size:255;not null;index"         json:"plateNumber"`
	MakeAndModel string          `gorm:"size:255;not null"               json:"makeAndModel"`
	Image        string          `gorm:"size:800"                        json:"image"`
	FinesDue     decimal.Decimal `gorm:"type:decimal(12,2);not null"     json:"finesDue"`
	Year         int             `json:"year,omitempty"`
	Colour       string          `gorm:"size:50"                         json:"colour,omitempty"`
	Weight       int             `json:"weight,omitempty"`
	NetWeight    int             `json:"netWeight,omitempty"`
	DriverID     uint            `gorm:"index;not null"                  json:"driverId"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	Driver   *Driver   `json:"driver,omitempty"`
	Payments []Payment `gorm:"constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

type Payment struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"                 json:"id"`
	VehicleID uint            `gorm:"index;not null"                           json:"vehicleId"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null;check:amount > 0" json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MaxMoney is the largest value a decimal(12,2) column holds.
var MaxMoney = decimal.RequireFromString("9999999999.99")

// TotalPayments sums the ledger in decimal arithmetic.
func TotalPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// All lists every model for AutoMigrate, parents first.
func All() []any {
	return []any{&User{}, &Driver{}, &Vehicle{}, &Payment{}}
}
