// Package weather holds the weather domain types the monitoring core depends on.
package weather

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLocation is returned for locations outside valid coordinates or with bad names.
var ErrInvalidLocation = errors.New("invalid location")

// Location is a city with its ISO 3166-1 alpha-2 country code and coordinates.
type Location struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewLocation validates and normalizes a location.
func NewLocation(city, country string, lat, lon float64) (Location, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Location{}, fmt.Errorf("%w: city name cannot be empty", ErrInvalidLocation)
	}
	if len(country) != 2 {
		return Location{}, fmt.Errorf("%w: country code must be exactly 2 characters", ErrInvalidLocation)
	}
	if lat < -90 || lat > 90 {
		return Location{}, fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidLocation, lat)
	}
	if lon < -180 || lon > 180 {
		return Location{}, fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidLocation, lon)
	}
	return Location{City: city, Country: strings.ToUpper(country), Latitude: lat, Longitude: lon}, nil
}

// FullName returns "City, CC".
func (l Location) FullName() string {
	return l.City + ", " + l.Country
}

// Key returns the cache key of the location, e.g. "New York_US".
func (l Location) Key() string {
	return strings.Join(strings.Fields(l.City), " ") + "_" + l.Country
}

// ReferenceLocation is the location used to probe the upstream API.
var ReferenceLocation = Location{City: "London", Country: "GB", Latitude: 51.5074, Longitude: -0.1278}
