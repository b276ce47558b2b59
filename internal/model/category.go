package model

import (
	"fmt"
	"strings"
)

// Category tags an ad and selects its collection, schema and limits.
type Category string

const (
	CategoryJob       Category = "job"
	CategoryProperty  Category = "property"
	CategoryVehicle   Category = "vehicle"
	CategoryApparel   Category = "apparel"
	CategoryFood      Category = "food"
	CategoryHomeGoods Category = "home_goods"
)

// Base ad fields shared by every category.
const (
	FieldTitle       = "title"
	FieldCaption     = "caption"
	FieldImages      = "images"
	FieldPhoneNumber = "phoneNumber"
	FieldLocation    = "location"
)

// NoFilterSentinel is sent by clients for "no filter" and ignored by listing.
const NoFilterSentinel = "بدون فیلتر"

// MatchMode selects how a listing filter compares values.
type MatchMode int

const (
	// MatchContains is a case-insensitive substring match.
	MatchContains MatchMode = iota
	// MatchExact is an equality match, used for enumerated fields.
	MatchExact
)

// AttributeSpec describes one category-specific field.
type AttributeSpec struct {
	Name string
	// Enum lists accepted values. Empty means free text.
	Enum []string
	// Image marks a field holding a single inline image or URL.
	Image bool
}

// FilterSpec whitelists a field for listing queries.
type FilterSpec struct {
	Field string
	Mode  MatchMode
}

// NotificationTemplate is the push text sent when an ad is created.
type NotificationTemplate struct {
	Title string
	// BodyFormat takes the ad title as its only verb.
	BodyFormat string
	// DailyCap is the per-recipient daily notification limit.
	DailyCap int
}

// Body renders the notification body for an ad title.
func (t NotificationTemplate) Body(adTitle string) string {
	return fmt.Sprintf(t.BodyFormat, adTitle)
}

// CategorySchema is the static table entry driving validation, quota,
// listing and notification for one category.
type CategorySchema struct {
	Category   Category
	Slug       string
	Collection string
	Required   []string
	Attributes []AttributeSpec
	Filters    []FilterSpec
	QuotaLimit int
	// Notification is nil for categories that never notify.
	Notification    *NotificationTemplate
	DefaultPageSize int
}

var (
	PropertyTypes = []string{"sale", "rent", "mortgage"}
	HomeSections  = []string{"home", "kitchen"}
)

var schemas = []*CategorySchema{
	{
		Category:   CategoryJob,
		Slug:       "jobs",
		Collection: "jobs",
		Required: []string{FieldTitle, FieldCaption, FieldImages, FieldPhoneNumber,
			"income", FieldLocation, "workingHours", "paymentType"},
		Attributes: []AttributeSpec{
			{Name: "workingHours"},
			{Name: "paymentType"},
			{Name: "income"},
			{Name: "jobTitle"},
		},
		Filters: []FilterSpec{
			{Field: FieldTitle, Mode: MatchContains},
			{Field: FieldLocation, Mode: MatchContains},
			{Field: "jobTitle", Mode: MatchContains},
			{Field: "workingHours", Mode: MatchContains},
			{Field: "paymentType", Mode: MatchExact},
		},
		QuotaLimit: 3,
		Notification: &NotificationTemplate{
			Title:      "New job posted",
			BodyFormat: "A new job %q was added.",
			DailyCap:   5,
		},
		DefaultPageSize: 3,
	},
	{
		Category:   CategoryProperty,
		Slug:       "properties",
		Collection: "properties",
		Required:   []string{FieldTitle, "type", FieldLocation, FieldPhoneNumber, "city"},
		Attributes: []AttributeSpec{
			{Name: "type", Enum: PropertyTypes},
			{Name: "price"},
			{Name: "rentPrice"},
			{Name: "mortgagePrice"},
			{Name: "area"},
			{Name: "city"},
		},
		Filters: []FilterSpec{
			{Field: FieldTitle, Mode: MatchContains},
			{Field: FieldLocation, Mode: MatchContains},
			{Field: "city", Mode: MatchContains},
			{Field: "type", Mode: MatchExact},
		},
		QuotaLimit: 5,
		Notification: &NotificationTemplate{
			Title:      "New property listed",
			BodyFormat: "A new property %q was added.",
			DailyCap:   5,
		},
		DefaultPageSize: 3,
	},
	{
		Category:   CategoryVehicle,
		Slug:       "vehicles",
		Collection: "vehicles",
		Required:   []string{FieldTitle, FieldCaption, FieldImages, FieldPhoneNumber, FieldLocation, "adType"},
		Attributes: []AttributeSpec{
			{Name: "model"},
			{Name: "brand"},
			{Name: "fuelType"},
			{Name: "registrationCardImage", Image: true},
			{Name: "adType"},
			{Name: "price"},
		},
		Filters: []FilterSpec{
			{Field: FieldTitle, Mode: MatchContains},
			{Field: FieldLocation, Mode: MatchContains},
			{Field: "brand", Mode: MatchContains},
			{Field: "model", Mode: MatchContains},
			{Field: "fuelType", Mode: MatchExact},
			{Field: "adType", Mode: MatchExact},
		},
		QuotaLimit: 5,
		Notification: &NotificationTemplate{
			Title:      "New vehicle listed",
			BodyFormat: "A new vehicle %q was added.",
			DailyCap:   2,
		},
		DefaultPageSize: 5,
	},
	{
		Category:   CategoryApparel,
		Slug:       "apparel",
		Collection: "apparel",
		Required:   []string{FieldTitle, FieldCaption, FieldImages, FieldPhoneNumber, FieldLocation, "address"},
		Attributes: []AttributeSpec{
			{Name: "model"},
			{Name: "status"},
			{Name: "texture"},
			{Name: "price"},
			{Name: "address"},
		},
		Filters: []FilterSpec{
			{Field: FieldTitle, Mode: MatchContains},
			{Field: FieldLocation, Mode: MatchContains},
			{Field: "model", Mode: MatchContains},
			{Field: "status", Mode: MatchExact},
		},
		QuotaLimit: 5,
		Notification: &NotificationTemplate{
			Title:      "New clothing ad",
			BodyFormat: "A new clothing ad %q was added.",
			DailyCap:   2,
		},
		DefaultPageSize: 5,
	},
	{
		Category:   CategoryFood,
		Slug:       "foods",
		Collection: "foods",
		Required:   []string{FieldTitle, FieldCaption, FieldImages, FieldLocation, "address"},
		Attributes: []AttributeSpec{
			{Name: "price"},
			{Name: "address"},
		},
		Filters: []FilterSpec{
			{Field: FieldTitle, Mode: MatchContains},
			{Field: FieldLocation, Mode: MatchContains},
		},
		QuotaLimit:      5,
		DefaultPageSize: 5,
	},
	{
		Category:   CategoryHomeGoods,
		Slug:       "home-goods",
		Collection: "home_goods",
		Required:   []string{FieldTitle, FieldCaption, FieldImages, FieldPhoneNumber, FieldLocation, "address"},
		Attributes: []AttributeSpec{
			{Name: "section", Enum: HomeSections},
			{Name: "model"},
			{Name: "status"},
			{Name: "texture"},
			{Name: "dimensions"},
			{Name: "price"},
			{Name: "address"},
		},
		Filters: []FilterSpec{
			{Field: FieldTitle, Mode: MatchContains},
			{Field: FieldLocation, Mode: MatchContains},
			{Field: "section", Mode: MatchExact},
			{Field: "status", Mode: MatchExact},
		},
		QuotaLimit: 5,
		Notification: &NotificationTemplate{
			Title:      "New home goods ad",
			BodyFormat: "A new home goods ad %q was added.",
			DailyCap:   2,
		},
		DefaultPageSize: 5,
	},
}

var (
	schemaByCategory = make(map[Category]*CategorySchema, len(schemas))
	schemaBySlug     = make(map[string]*CategorySchema, len(schemas))
)

func init() {
	for _, s := range schemas {
		schemaByCategory[s.Category] = s
		schemaBySlug[s.Slug] = s
	}
}

// Schemas returns every category schema in a stable order.
func Schemas() []*CategorySchema {
	out := make([]*CategorySchema, len(schemas))
	copy(out, schemas)
	return out
}

// SchemaFor looks up the schema of a category.
func SchemaFor(c Category) (*CategorySchema, error) {
	s, ok := schemaByCategory[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return s, nil
}

// ParseCategory accepts either a category tag or its slug.
func ParseCategory(v string) (Category, error) {
	v = strings.TrimSpace(v)
	if s, ok := schemaByCategory[Category(v)]; ok {
		return s.Category, nil
	}
	if s, ok := schemaBySlug[strings.ToLower(v)]; ok {
		return s.Category, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, v)
}

// Attribute returns the definition of a category attribute.
func (s *CategorySchema) Attribute(name string) (AttributeSpec, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeSpec{}, false
}

// ImageAttributes returns the names of attributes holding an image.
func (s *CategorySchema) ImageAttributes() []string {
	var names []string
	for _, a := range s.Attributes {
		if a.Image {
			names = append(names, a.Name)
		}
	}
	return names
}

// IsBaseField reports whether name is stored at the top level of an ad.
func IsBaseField(name string) bool {
	switch name {
	case FieldTitle, FieldCaption, FieldImages, FieldPhoneNumber, FieldLocation:
		return true
	}
	return false
}
