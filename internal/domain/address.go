package domain

import (
	"fmt"
	"sort"
	"strings"
)

type Address struct {
	Name    string
	Phone   string
	Line1   string
	Line2   string
	City    string
	State   string
	Pincode string
}

// FieldErrors maps a field name to its validation message. Validation runs
// before any network call so a bad address is rejected per-field, locally.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fe[f]))
	}
	return "invalid address: " + strings.Join(parts, "; ")
}

func (a Address) Validate() error {
	fe := FieldErrors{}

	if strings.TrimSpace(a.Name) == "" {
		fe["name"] = "is required"
	}
	if strings.TrimSpace(a.Phone) == "" {
		fe["phone"] = "is required"
	}
	if strings.TrimSpace(a.Line1) == "" {
		fe["line1"] = "is required"
	}
	if strings.TrimSpace(a.City) == "" {
		fe["city"] = "is required"
	}
	if strings.TrimSpace(a.State) == "" {
		fe["state"] = "is required"
	}
	if !validPincode(strings.TrimSpace(a.Pincode)) {
		fe["pincode"] = "must be 6 digits"
	}

	if len(fe) > 0 {
		return fe
	}
	return nil
}

func validPincode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
