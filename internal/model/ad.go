package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MaxAdImages is the upper bound on images stored with one ad.
const MaxAdImages = 5

// Ad is a listing of any category. Category-specific fields live in Attributes.
type Ad struct {
	ID          string
	Category    Category
	Title       string
	Caption     string
	Images      []string
	PhoneNumber string
	Location    string
	Attributes  map[string]string
	OwnerID     int64
	Owner       *UserSummary
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MarshalJSON flattens attributes next to the base fields.
func (a Ad) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Attributes)+10)
	for k, v := range a.Attributes {
		out[k] = v
	}
	images := a.Images
	if images == nil {
		images = []string{}
	}
	out["id"] = a.ID
	out["category"] = a.Category
	out[FieldTitle] = a.Title
	out[FieldCaption] = a.Caption
	out[FieldImages] = images
	out[FieldPhoneNumber] = a.PhoneNumber
	out[FieldLocation] = a.Location
	out["user_id"] = a.OwnerID
	if a.Owner != nil {
		out["user"] = a.Owner
	}
	out["created_at"] = a.CreatedAt
	out["updated_at"] = a.UpdatedAt
	return json.Marshal(out)
}

// Field returns a base field or attribute by name.
func (a *Ad) Field(name string) string {
	switch name {
	case FieldTitle:
		return a.Title
	case FieldCaption:
		return a.Caption
	case FieldPhoneNumber:
		return a.PhoneNumber
	case FieldLocation:
		return a.Location
	}
	return a.Attributes[name]
}

func (a *Ad) setField(name, value string) {
	switch name {
	case FieldTitle:
		a.Title = value
	case FieldCaption:
		a.Caption = value
	case FieldPhoneNumber:
		a.PhoneNumber = value
	case FieldLocation:
		a.Location = value
	default:
		if a.Attributes == nil {
			a.Attributes = make(map[string]string)
		}
		a.Attributes[name] = value
	}
}

// Clone returns a deep copy.
func (a *Ad) Clone() *Ad {
	c := *a
	c.Images = slices.Clone(a.Images)
	if a.Attributes != nil {
		c.Attributes = make(map[string]string, len(a.Attributes))
		for k, v := range a.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// AdInput is a normalized create or update payload.
type AdInput struct {
	Fields map[string]string
	Images []string
	// HasImages distinguishes an omitted images field from an empty one.
	HasImages bool
}

// ParseAdInput normalizes a decoded JSON object. Scalars are coerced to
// trimmed strings, "description" aliases caption and a single "image"
// aliases images.
func ParseAdInput(raw map[string]any) (AdInput, error) {
	in := AdInput{Fields: make(map[string]string, len(raw))}

	for key, value := range raw {
		switch key {
		case FieldImages:
			images, err := imageList(value)
			if err != nil {
				return AdInput{}, err
			}
			in.Images = images
			in.HasImages = true
			continue
		case "image":
			continue
		case "id", "_id", "user", "user_id", "category", "created_at", "updated_at", "createdAt", "updatedAt":
			continue
		}

		s, ok, err := scalarString(key, value)
		if err != nil {
			return AdInput{}, err
		}
		if ok {
			in.Fields[key] = s
		}
	}

	if !in.HasImages {
		if single, ok := raw["image"].(string); ok && strings.TrimSpace(single) != "" {
			in.Images = []string{strings.TrimSpace(single)}
			in.HasImages = true
		}
	}
	if _, ok := in.Fields[FieldCaption]; !ok {
		if d, ok := in.Fields["description"]; ok {
			in.Fields[FieldCaption] = d
		}
	}
	delete(in.Fields, "description")

	return in, nil
}

func imageList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		return []string{strings.TrimSpace(v)}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, NewValidationError(FieldImages, "must be a list of strings")
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []string:
		return v, nil
	}
	return nil, NewValidationError(FieldImages, "must be a list of strings")
}

func scalarString(key string, value any) (string, bool, error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return strings.TrimSpace(v), true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	case json.Number:
		return v.String(), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	}
	return "", false, NewValidationError(key, "must be a string or number")
}

// NewAd builds an unsaved ad from input and validates it.
func (s *CategorySchema) NewAd(in AdInput) (*Ad, error) {
	ad := &Ad{Category: s.Category, Attributes: make(map[string]string)}
	s.apply(ad, in)
	if err := s.Validate(ad); err != nil {
		return nil, err
	}
	return ad, nil
}

// Merge overlays non-empty input fields on a stored ad. Images are replaced
// only when the input carries them. The merged ad is validated.
func (s *CategorySchema) Merge(existing *Ad, in AdInput) (*Ad, error) {
	merged := existing.Clone()
	s.apply(merged, in)
	if err := s.Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *CategorySchema) apply(ad *Ad, in AdInput) {
	for name, value := range in.Fields {
		if value == "" {
			continue
		}
		if IsBaseField(name) {
			ad.setField(name, value)
			continue
		}
		if _, ok := s.Attribute(name); ok {
			ad.setField(name, value)
		}
	}
	if in.HasImages {
		ad.Images = slices.Clone(in.Images)
	}
}

// Validate checks required fields and enumerated values.
func (s *CategorySchema) Validate(ad *Ad) error {
	for _, name := range s.Required {
		if name == FieldImages {
			if len(ad.Images) == 0 {
				return NewValidationError(FieldImages, "at least one image is required")
			}
			continue
		}
		if ad.Field(name) == "" {
			return NewValidationError(name, "is required")
		}
	}
	for _, attr := range s.Attributes {
		if len(attr.Enum) == 0 {
			continue
		}
		v := ad.Attributes[attr.Name]
		if v == "" {
			continue
		}
		if !slices.Contains(attr.Enum, strings.ToLower(v)) {
			return NewValidationError(attr.Name, fmt.Sprintf("must be one of %s", strings.Join(attr.Enum, ", ")))
		}
		ad.Attributes[attr.Name] = strings.ToLower(v)
	}
	return nil
}

// FieldMatch is one conjunct of a listing filter. Values are OR-ed.
type FieldMatch struct {
	Field  string
	Values []string
	Mode   MatchMode
}

// AdFilter selects ads within one category.
type AdFilter struct {
	OwnerID     *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Matches     []FieldMatch
}

// AdPage is one page of a listing.
type AdPage struct {
	Items      []Ad  `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ListQuery is a parsed listing request.
type ListQuery struct {
	Filters  map[string][]string
	Page     int
	PageSize int
}

// MaxPageSize caps client-requested page sizes.
const MaxPageSize = 50
