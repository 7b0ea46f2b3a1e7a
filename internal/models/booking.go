// Package models - Booking catalog and request types.
//
// Vehicle and Service are closed sets. Labels are resolved with exhaustive
// switches, and an unknown key never falls back to itself: callers must parse
// a key before it reaches a label lookup.
package models

import "fmt"

// Vehicle is the category of vehicle brought in for a booking.
type Vehicle string

const (
	VehicleCar   Vehicle = "car"
	VehicleSUV   Vehicle = "suv"
	VehicleTruck Vehicle = "truck"
	VehicleBike  Vehicle = "bike"
)

// AllVehicles lists every vehicle category in display order.
func AllVehicles() []Vehicle {
	return []Vehicle{VehicleCar, VehicleSUV, VehicleTruck, VehicleBike}
}

// ParseVehicle converts a raw key into a Vehicle.
func ParseVehicle(key string) (Vehicle, error) {
	v := Vehicle(key)
	if !v.Valid() {
		return "", fmt.Errorf("unknown vehicle: %q", key)
	}
	return v, nil
}

// Valid reports whether v belongs to the catalog.
func (v Vehicle) Valid() bool {
	return v.Label() != ""
}

// Label returns the customer-facing name, or "" for a value outside the catalog.
func (v Vehicle) Label() string {
	switch v {
	case VehicleCar:
		return "Auto"
	case VehicleSUV:
		return "SUV"
	case VehicleTruck:
		return "Camion"
	case VehicleBike:
		return "Moto"
	}
	return ""
}

// Service is a sellable detailing service, keyed by its catalog slug.
type Service string

const (
	ServiceInteriorDetailing Service = "detailing-interno"
	ServiceBodyPolishing     Service = "lucidatura-carrozzeria"
	ServicePaintCorrection   Service = "paint-correction"
	ServiceOzoneSanitization Service = "sanificazione-ozono"
	ServiceCeramicCoating    Service = "ceramic-coating"
	ServicePPFWrapping       Service = "ppf-wrapping"
)

// AllServices lists every sellable service in display order.
func AllServices() []Service {
	return []Service{
		ServiceInteriorDetailing,
		ServiceBodyPolishing,
		ServicePaintCorrection,
		ServiceOzoneSanitization,
		ServiceCeramicCoating,
		ServicePPFWrapping,
	}
}

// ParseService converts a raw slug into a Service.
func ParseService(key string) (Service, error) {
	s := Service(key)
	if !s.Valid() {
		return "", fmt.Errorf("unknown service: %q", key)
	}
	return s, nil
}

// Valid reports whether s belongs to the catalog.
func (s Service) Valid() bool {
	return s.Label() != ""
}

// Label returns the customer-facing name, or "" for a value outside the catalog.
func (s Service) Label() string {
	switch s {
	case ServiceInteriorDetailing:
		return "Detailing interno"
	case ServiceBodyPolishing:
		return "Lucidatura carrozzeria"
	case ServicePaintCorrection:
		return "Paint correction"
	case ServiceOzoneSanitization:
		return "Sanificazione interni (ozono)"
	case ServiceCeramicCoating:
		return "Ceramic coating"
	case ServicePPFWrapping:
		return "PPF wrapping"
	}
	return ""
}

// BookingRequest is a validated booking submission. It is built once per
// request, handed to the notifier and then discarded.
type BookingRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Vehicle Vehicle `json:"vehicle"`
	Service Service `json:"service"`
	Date    string  `json:"date"`
	Time    string  `json:"time"`
	Notes   string  `json:"notes"`
	Website string  `json:"website"`
}

// HoneypotTriggered reports whether the hidden website field was filled in.
func (b *BookingRequest) HoneypotTriggered() bool {
	return b.Website != ""
}

// CatalogEntry is one selectable option exposed to the booking form.
type CatalogEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// CatalogResponse lists the options the booking form may submit.
type CatalogResponse struct {
	Vehicles []CatalogEntry `json:"vehicles"`
	Services []CatalogEntry `json:"services"`
}

// NewCatalogResponse builds the catalog from the closed enums.
func NewCatalogResponse() *CatalogResponse {
	resp := &CatalogResponse{}
	for _, v := range AllVehicles() {
		resp.Vehicles = append(resp.Vehicles, CatalogEntry{Key: string(v), Label: v.Label()})
	}
	for _, s := range AllServices() {
		resp.Services = append(resp.Services, CatalogEntry{Key: string(s), Label: s.Label()})
	}
	return resp
}
