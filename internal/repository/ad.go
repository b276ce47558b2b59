package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"adsboard/internal/model"
)

// adDocument is the stored shape of an ad.
type adDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Caption     string             `bson:"caption"`
	Images      []string           `bson:"images"`
	PhoneNumber string             `bson:"phone_number"`
	Location    string             `bson:"location"`
	Attributes  map[string]string  `bson:"attributes,omitempty"`
	UserID      int64              `bson:"user_id"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func toAdDocument(ad *model.Ad) (*adDocument, error) {
	doc := &adDocument{
		Title:       ad.Title,
		Caption:     ad.Caption,
		Images:      ad.Images,
		PhoneNumber: ad.PhoneNumber,
		Location:    ad.Location,
		Attributes:  ad.Attributes,
		UserID:      ad.OwnerID,
		CreatedAt:   ad.CreatedAt,
		UpdatedAt:   ad.UpdatedAt,
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}
	if ad.ID != "" {
		id, err := primitive.ObjectIDFromHex(ad.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid ad id %q: %w", ad.ID, err)
		}
		doc.ID = id
	}
	return doc, nil
}

func (d *adDocument) toModel(category model.Category) model.Ad {
	return model.Ad{
		ID:          d.ID.Hex(),
		Category:    category,
		Title:       d.Title,
		Caption:     d.Caption,
		Images:      d.Images,
		PhoneNumber: d.PhoneNumber,
		Location:    d.Location,
		Attributes:  d.Attributes,
		OwnerID:     d.UserID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// fieldPath maps a model field name to its document path.
func fieldPath(name string) string {
	switch name {
	case model.FieldTitle:
		return "title"
	case model.FieldCaption:
		return "caption"
	case model.FieldPhoneNumber:
		return "phone_number"
	case model.FieldLocation:
		return "location"
	case model.FieldImages:
		return "images"
	}
	return "attributes." + name
}

type adRepository struct {
	db *mongo.Database
}

// NewAdRepository creates an ad repository over one collection per category.
func NewAdRepository(db *mongo.Database) AdRepository {
	return &adRepository{db: db}
}

func (r *adRepository) collection(category model.Category) (*mongo.Collection, error) {
	schema, err := model.SchemaFor(category)
	if err != nil {
		return nil, err
	}
	return r.db.Collection(schema.Collection), nil
}

// EnsureAdIndexes creates the indexes backing listing, quota and owner queries.
func EnsureAdIndexes(ctx context.Context, db *mongo.Database) error {
	for _, schema := range model.Schemas() {
		_, err := db.Collection(schema.Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		})
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", schema.Collection, err)
		}
	}
	return nil
}

func (r *adRepository) Insert(ctx context.Context, ad *model.Ad) error {
	coll, err := r.collection(ad.Category)
	if err != nil {
		return err
	}
	doc, err := toAdDocument(ad)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert ad: %w", err)
	}
	ad.ID = doc.ID.Hex()
	return nil
}

func (r *adRepository) GetByID(ctx context.Context, category model.Category, id string) (*model.Ad, error) {
	coll, err := r.collection(category)
	if err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, model.ErrAdNotFound
	}

	var doc adDocument
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to get ad: %w", err)
	}
	ad := doc.toModel(category)
	return &ad, nil
}

func (r *adRepository) GetByIDs(ctx context.Context, category model.Category, ids []string) ([]model.Ad, error) {
	coll, err := r.collection(category)
	if err != nil {
		return nil, err
	}
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}

	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get ads by ids: %w", err)
	}
	return decodeAds(ctx, cursor, category)
}

func (r *adRepository) Find(ctx context.Context, category model.Category, filter model.AdFilter, skip, limit int64) ([]model.Ad, error) {
	coll, err := r.collection(category)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := coll.Find(ctx, buildAdQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ads: %w", err)
	}
	return decodeAds(ctx, cursor, category)
}

func (r *adRepository) Count(ctx context.Context, category model.Category, filter model.AdFilter) (int64, error) {
	coll, err := r.collection(category)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, buildAdQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count ads: %w", err)
	}
	return n, nil
}

func (r *adRepository) Update(ctx context.Context, ad *model.Ad) error {
	coll, err := r.collection(ad.Category)
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(ad.ID)
	if err != nil {
		return model.ErrAdNotFound
	}

	images := ad.Images
	if images == nil {
		images = []string{}
	}
	set := bson.M{
		"title":        ad.Title,
		"caption":      ad.Caption,
		"images":       images,
		"phone_number": ad.PhoneNumber,
		"location":     ad.Location,
		"attributes":   ad.Attributes,
		"updated_at":   ad.UpdatedAt,
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid, "user_id": ad.OwnerID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update ad: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrAdNotFound
	}
	return nil
}

func (r *adRepository) Delete(ctx context.Context, category model.Category, id string) error {
	coll, err := r.collection(category)
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.ErrAdNotFound
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrAdNotFound
	}
	return nil
}

func decodeAds(ctx context.Context, cursor *mongo.Cursor, category model.Category) ([]model.Ad, error) {
	defer cursor.Close(ctx)

	var docs []adDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode ads: %w", err)
	}
	ads := make([]model.Ad, len(docs))
	for i := range docs {
		ads[i] = docs[i].toModel(category)
	}
	return ads, nil
}

// buildAdQuery translates an AdFilter into a conjunctive Mongo query.
// Values of one FieldMatch are OR-ed via $in.
func buildAdQuery(filter model.AdFilter) bson.M {
	query := bson.M{}
	if filter.OwnerID != nil {
		query["user_id"] = *filter.OwnerID
	}
	if filter.CreatedFrom != nil || filter.CreatedTo != nil {
		window := bson.M{}
		if filter.CreatedFrom != nil {
			window["$gte"] = *filter.CreatedFrom
		}
		if filter.CreatedTo != nil {
			window["$lt"] = *filter.CreatedTo
		}
		query["created_at"] = window
	}

	for _, m := range filter.Matches {
		if len(m.Values) == 0 {
			continue
		}
		path := fieldPath(m.Field)
		switch m.Mode {
		case model.MatchExact:
			query[path] = bson.M{"$in": m.Values}
		default:
			patterns := make([]primitive.Regex, len(m.Values))
			for i, v := range m.Values {
				patterns[i] = primitive.Regex{Pattern: regexp.QuoteMeta(v), Options: "i"}
			}
			query[path] = bson.M{"$in": patterns}
		}
	}
	return query
}
