package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsboard/internal/model"
)

const inlinePNG = "data:image/png;base64,iVBORw0KGgo="

func jobAdInput(images ...string) model.AdInput {
	return model.AdInput{
		Fields: map[string]string{
			model.FieldTitle:       "Barista",
			model.FieldCaption:     "Morning shifts",
			model.FieldPhoneNumber: "0912000000",
			model.FieldLocation:    "Downtown",
			"income":               "1200",
			"workingHours":         "8-14",
			"paymentType":          "monthly",
		},
		Images:    images,
		HasImages: true,
	}
}

func propertyAdInput(title string) model.AdInput {
	return model.AdInput{Fields: map[string]string{
		model.FieldTitle:       title,
		model.FieldLocation:    "North",
		model.FieldPhoneNumber: "0912000000",
		"city":                 "Tehran",
		"type":                 "rent",
	}}
}

// ===== CREATE =====

func TestAdService_Create_Job(t *testing.T) {
	p := newTestAdPipeline()

	ad, err := p.svc.Create(context.Background(), 1, model.CategoryJob,
		jobAdInput(inlinePNG, "https://example.com/kept.jpg", inlinePNG))
	require.NoError(t, err)

	assert.NotEmpty(t, ad.ID)
	assert.Equal(t, int64(1), ad.OwnerID)
	assert.Equal(t, fixedClock, ad.CreatedAt)
	require.Len(t, ad.Images, 3)
	assert.True(t, strings.HasPrefix(ad.Images[0], "https://cdn.test/"))
	assert.Equal(t, "https://example.com/kept.jpg", ad.Images[1])
	assert.True(t, strings.HasPrefix(ad.Images[2], "https://cdn.test/"))
	for _, img := range ad.Images {
		assert.False(t, IsInlineImage(img))
	}

	require.NotNil(t, ad.Owner)
	assert.Equal(t, "sara", ad.Owner.Username)

	require.Len(t, p.events.created, 1)
	notice := p.events.created[0]
	assert.Equal(t, ad.ID, notice.AdID)
	assert.Equal(t, int64(1), notice.AuthorID)
	assert.Equal(t, 5, notice.DailyCap)
	assert.Contains(t, notice.Body, "Barista")
}

func TestAdService_Create_ValidationStopsEarly(t *testing.T) {
	p := newTestAdPipeline()

	in := jobAdInput(inlinePNG)
	delete(in.Fields, "income")
	_, err := p.svc.Create(context.Background(), 1, model.CategoryJob, in)

	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, p.store.uploaded, "no upload before validation passes")
	assert.Zero(t, p.repo.stored(model.CategoryJob))
}

func TestAdService_Create_QuotaPerCategory(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := p.svc.Create(ctx, 1, model.CategoryProperty, propertyAdInput("Flat"))
		require.NoError(t, err, "property ad %d", i+1)
	}

	_, err := p.svc.Create(ctx, 1, model.CategoryProperty, propertyAdInput("One too many"))
	var quotaErr *model.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 5, quotaErr.Limit)
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	assert.Equal(t, 5, p.repo.stored(model.CategoryProperty))

	// other users and other categories are unaffected
	_, err = p.svc.Create(ctx, 2, model.CategoryProperty, propertyAdInput("Theirs"))
	assert.NoError(t, err)
	_, err = p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
	assert.NoError(t, err)
}

func TestAdService_Create_JobQuotaThree(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
		require.NoError(t, err)
	}
	_, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
}

func TestAdService_Create_QuotaCountError(t *testing.T) {
	p := newTestAdPipeline()
	p.repo.countErr = errors.New("mongo down")

	_, err := p.svc.Create(context.Background(), 1, model.CategoryJob, jobAdInput(inlinePNG))
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.Empty(t, p.store.uploaded)
}

func TestAdService_Create_UploadFailureCompensates(t *testing.T) {
	p := newTestAdPipeline()

	_, err := p.svc.Create(context.Background(), 1, model.CategoryJob,
		jobAdInput(inlinePNG, "data:image/png;base64,fail"))

	assert.ErrorIs(t, err, model.ErrUploadFailed)
	assert.Zero(t, p.repo.stored(model.CategoryJob))
	assert.ElementsMatch(t, p.store.uploaded, p.store.destroyedURLs())
	assert.Empty(t, p.events.created)
}

func TestAdService_Create_TooManyImages(t *testing.T) {
	p := newTestAdPipeline()

	images := make([]string, model.MaxAdImages+1)
	for i := range images {
		images[i] = inlinePNG
	}
	_, err := p.svc.Create(context.Background(), 1, model.CategoryJob, jobAdInput(images...))

	assert.ErrorIs(t, err, model.ErrTooManyImages)
	assert.Empty(t, p.store.uploaded)
}

func TestAdService_Create_PersistFailureDestroysUploads(t *testing.T) {
	p := newTestAdPipeline()
	p.repo.insertErr = errors.New("write concern")

	_, err := p.svc.Create(context.Background(), 1, model.CategoryJob, jobAdInput(inlinePNG, inlinePNG))

	assert.ErrorIs(t, err, model.ErrPersistence)
	require.Len(t, p.store.uploaded, 2)
	assert.ElementsMatch(t, p.store.uploaded, p.store.destroyedURLs())
	assert.Empty(t, p.events.created)
}

func TestAdService_Create_FoodDoesNotNotify(t *testing.T) {
	p := newTestAdPipeline()

	_, err := p.svc.Create(context.Background(), 1, model.CategoryFood, model.AdInput{
		Fields: map[string]string{
			model.FieldTitle:    "Saffron rice",
			model.FieldCaption:  "Homemade",
			model.FieldLocation: "East",
			"address":           "Alley 4",
		},
		Images:    []string{"https://example.com/rice.jpg"},
		HasImages: true,
	})
	require.NoError(t, err)
	assert.Empty(t, p.events.created)
}

func TestAdService_Create_EventFailureDoesNotFail(t *testing.T) {
	p := newTestAdPipeline()
	p.events.err = errors.New("stream unavailable")

	ad, err := p.svc.Create(context.Background(), 1, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
	require.NoError(t, err)
	assert.NotEmpty(t, ad.ID)
}

func TestAdService_Create_RegistrationCardUploaded(t *testing.T) {
	p := newTestAdPipeline()

	ad, err := p.svc.Create(context.Background(), 1, model.CategoryVehicle, model.AdInput{
		Fields: map[string]string{
			model.FieldTitle:        "Sedan",
			model.FieldCaption:      "Low mileage",
			model.FieldPhoneNumber:  "0912",
			model.FieldLocation:     "South",
			"adType":                "sale",
			"registrationCardImage": inlinePNG,
		},
		Images:    []string{inlinePNG},
		HasImages: true,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ad.Attributes["registrationCardImage"], "https://cdn.test/"))
	assert.Len(t, p.store.uploaded, 2)
}

func TestAdService_Create_MissingRequiredStoresNothing(t *testing.T) {
	for _, schema := range model.Schemas() {
		for _, field := range schema.Required {
			t.Run(string(schema.Category)+"/"+field, func(t *testing.T) {
				p := newTestAdPipeline()

				in := model.AdInput{Fields: map[string]string{}, Images: []string{inlinePNG}, HasImages: true}
				for _, name := range schema.Required {
					if name != model.FieldImages {
						in.Fields[name] = "value"
					}
				}
				for _, attr := range schema.Attributes {
					if len(attr.Enum) > 0 {
						in.Fields[attr.Name] = attr.Enum[0]
					}
				}
				if field == model.FieldImages {
					in.Images = nil
				} else {
					delete(in.Fields, field)
				}

				_, err := p.svc.Create(context.Background(), 1, schema.Category, in)
				assert.ErrorIs(t, err, model.ErrValidation)
				assert.Zero(t, p.repo.stored(schema.Category))
				assert.Empty(t, p.store.uploaded)
			})
		}
	}
}

func TestAdService_Create_UnknownCategory(t *testing.T) {
	p := newTestAdPipeline()
	_, err := p.svc.Create(context.Background(), 1, model.Category("boats"), jobAdInput())
	assert.ErrorIs(t, err, model.ErrUnknownCategory)
}

// ===== UPDATE =====

func TestAdService_Update_ReplacesImages(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	ad, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput(inlinePNG, inlinePNG))
	require.NoError(t, err)
	kept, dropped := ad.Images[0], ad.Images[1]

	updated, err := p.svc.Update(ctx, 1, model.CategoryJob, ad.ID, model.AdInput{
		Fields:    map[string]string{model.FieldTitle: "Senior barista"},
		Images:    []string{kept, inlinePNG},
		HasImages: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Senior barista", updated.Title)
	assert.Equal(t, "1200", updated.Attributes["income"])
	require.Len(t, updated.Images, 2)
	assert.Equal(t, kept, updated.Images[0])
	assert.NotEqual(t, dropped, updated.Images[1])
	assert.Equal(t, []string{dropped}, p.store.destroyedURLs())

	stored, err := p.repo.GetByID(ctx, model.CategoryJob, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, "Senior barista", stored.Title)
	assert.Len(t, p.events.created, 1, "updates never notify")
}

func TestAdService_Update_KeepsImagesWhenOmitted(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	ad, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput(inlinePNG))
	require.NoError(t, err)

	updated, err := p.svc.Update(ctx, 1, model.CategoryJob, ad.ID, model.AdInput{
		Fields: map[string]string{"income": "1500"},
	})
	require.NoError(t, err)
	assert.Equal(t, ad.Images, updated.Images)
	assert.Empty(t, p.store.destroyedURLs())
}

func TestAdService_Update_Forbidden(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	ad, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
	require.NoError(t, err)

	_, err = p.svc.Update(ctx, 2, model.CategoryJob, ad.ID, model.AdInput{
		Fields: map[string]string{model.FieldTitle: "Hijacked"},
	})
	assert.ErrorIs(t, err, model.ErrForbidden)

	stored, _ := p.repo.GetByID(ctx, model.CategoryJob, ad.ID)
	assert.Equal(t, "Barista", stored.Title)
}

func TestAdService_Update_NotFound(t *testing.T) {
	p := newTestAdPipeline()
	_, err := p.svc.Update(context.Background(), 1, model.CategoryJob, "missing", model.AdInput{})
	assert.ErrorIs(t, err, model.ErrAdNotFound)
}

func TestAdService_Update_PersistFailureDestroysNewUploads(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	ad, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
	require.NoError(t, err)
	p.repo.updateErr = errors.New("timeout")

	_, err = p.svc.Update(ctx, 1, model.CategoryJob, ad.ID, model.AdInput{
		Images:    []string{inlinePNG},
		HasImages: true,
	})
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.Equal(t, p.store.uploaded, p.store.destroyedURLs())
}

// ===== DELETE =====

func TestAdService_Delete(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	ad, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput(inlinePNG, inlinePNG))
	require.NoError(t, err)

	require.NoError(t, p.svc.Delete(ctx, 1, model.CategoryJob, ad.ID))

	assert.Zero(t, p.repo.stored(model.CategoryJob))
	assert.ElementsMatch(t, ad.Images, p.store.destroyedURLs())
	assert.Equal(t, []string{ad.ID}, p.events.deleted)

	_, err = p.svc.Get(ctx, model.CategoryJob, ad.ID)
	assert.ErrorIs(t, err, model.ErrAdNotFound)
}

func TestAdService_Delete_Forbidden(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	ad, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
	require.NoError(t, err)

	err = p.svc.Delete(ctx, 2, model.CategoryJob, ad.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.Equal(t, 1, p.repo.stored(model.CategoryJob))
	assert.Empty(t, p.events.deleted)
}

func TestAdService_RejectsImagesOfAnotherAd(t *testing.T) {
	p := newTestAdPipeline()
	ctx := context.Background()

	victim, err := p.svc.Create(ctx, 1, model.CategoryJob, jobAdInput(inlinePNG))
	require.NoError(t, err)
	stolen := victim.Images[0]

	_, err = p.svc.Create(ctx, 2, model.CategoryJob, jobAdInput(stolen))
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 1, p.repo.stored(model.CategoryJob))

	own, err := p.svc.Create(ctx, 2, model.CategoryJob, jobAdInput("https://example.com/a.jpg"))
	require.NoError(t, err)
	_, err = p.svc.Update(ctx, 2, model.CategoryJob, own.ID, model.AdInput{
		Images:    []string{stolen},
		HasImages: true,
	})
	assert.ErrorIs(t, err, model.ErrValidation)

	require.NoError(t, p.svc.Delete(ctx, 2, model.CategoryJob, own.ID))
	assert.NotContains(t, p.store.destroyedURLs(), stolen)

	stored, err := p.repo.GetByID(ctx, model.CategoryJob, victim.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{stolen}, stored.Images)
}

func TestAdService_DestroysAfterWriteSurviveCancellation(t *testing.T) {
	p := newTestAdPipeline()

	ad, err := p.svc.Create(context.Background(), 1, model.CategoryJob, jobAdInput(inlinePNG, inlinePNG))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.svc.Update(ctx, 1, model.CategoryJob, ad.ID, model.AdInput{
		Images:    ad.Images[:1],
		HasImages: true,
	})
	require.NoError(t, err)
	assert.Equal(t, ad.Images[1:], p.store.destroyedURLs())

	require.NoError(t, p.svc.Delete(ctx, 1, model.CategoryJob, ad.ID))
	assert.ElementsMatch(t, ad.Images, p.store.destroyedURLs())
}

func TestAdService_Get_StoreFailure(t *testing.T) {
	p := newTestAdPipeline()
	p.repo.getErr = errors.New("connection reset")

	_, err := p.svc.Get(context.Background(), model.CategoryJob, "ad-001")
	assert.ErrorIs(t, err, model.ErrPersistence)
}
