package domain

import (
	openapi_types "github.com/oapi-codegen/runtime/types"
)

type TaxStatus string

const (
	TaxStatusTaxed   TaxStatus = "TAXED"
	TaxStatusUntaxed TaxStatus = "UNTAXED"
	TaxStatusSORN    TaxStatus = "SORN"
	TaxStatusUnknown TaxStatus = "Unknown"
)

// Display returns the human label shown next to a tax status.
func (s TaxStatus) Display() string {
	switch s {
	case TaxStatusTaxed:
		return "Taxed"
	case TaxStatusUntaxed:
		return "Untaxed"
	case TaxStatusSORN:
		return "SORN (Statutory Off Road Notification)"
	default:
		return string(s)
	}
}

const (
	UnknownValue     = "Unknown"
	NoMOTDetailsHeld = "No details held by DVLA"
)

// VehicleRecord is the tax/MOT snapshot returned by the vehicle lookup service.
// Records are built once from a remote response and never modified afterwards.
type VehicleRecord struct {
	RegistrationNumber string              `json:"registrationNumber"`
	TaxStatus          TaxStatus           `json:"taxStatus"`
	TaxDueDate         *openapi_types.Date `json:"taxDueDate,omitempty"`
	MOTStatus          string              `json:"motStatus"`
	MOTExpiryDate      *openapi_types.Date `json:"motExpiryDate,omitempty"`
	Make               string              `json:"make"`
	Colour             string              `json:"colour"`
	FuelType           string              `json:"fuelType"`
	EngineCapacity     *int                `json:"engineCapacity,omitempty"`
	CO2Emissions       *int                `json:"co2Emissions,omitempty"`
	YearOfManufacture  int                 `json:"yearOfManufacture"`
}

// FormatDate renders an optional date the way results are displayed ("2 January 2006").
func FormatDate(d *openapi_types.Date) string {
	if d == nil || d.Time.IsZero() {
		return UnknownValue
	}
	return d.Time.Format("2 January 2006")
}
