package models

import (
	"strings"

	dErrors "cityconnect/pkg/domain-errors"
)

// Category is the closed set of complaint subjects.
type Category string

const (
	CategoryRoads           Category = "Roads"
	CategoryWaterSupply     Category = "Water Supply"
	CategoryElectricity     Category = "Electricity"
	CategoryWasteManagement Category = "Waste Management"
	CategoryParks           Category = "Parks & Recreation"
	CategoryPublicSafety    Category = "Public Safety"
	CategoryOther           Category = "Other"
)

var categories = []Category{
	CategoryRoads,
	CategoryWaterSupply,
	CategoryElectricity,
	CategoryWasteManagement,
	CategoryParks,
	CategoryPublicSafety,
	CategoryOther,
}

// ParseCategory matches case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "category is required")
	}
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown complaint category")
}

func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}
