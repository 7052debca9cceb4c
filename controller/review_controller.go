package controller

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"cafereview/database"
	"cafereview/model"
	"cafereview/resource"
	"cafereview/storage"
	"cafereview/utils"
	"cafereview/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ratingRule = fmt.Sprintf("min=%d,max=%d", model.MinRating, model.MaxRating)

type reviewInput struct {
	AddressID    uint                    `json:"-" validate:"-"`
	Address      addressInput            `json:"-" validate:"-"`
	CafeShopName string                  `json:"cafe_shop_name" validate:"required,max=255"`
	Rating       int                     `json:"rating" validate:"-"`
	Review       *string                 `json:"review"`
	Images       []*multipart.FileHeader `json:"-" validate:"-"`
}

// reviewInputFrom validates a create payload. Either address_id links an
// existing address or the nested address fields describe a new one.
func reviewInputFrom(db *gorm.DB, p *utils.Payload) (reviewInput, validation.Errors, error) {
	in := reviewInput{
		CafeShopName: strings.TrimSpace(p.String("cafe_shop_name")),
		Review:       nullable(p.String("review")),
		Images:       p.Files("images"),
	}

	errs := validation.Struct(in)

	if validation.Required(errs, "rating", p.String("rating")) {
		if rating, ok := validation.Integer(errs, "rating", p.String("rating")); ok {
			in.Rating = rating
			validation.Var(errs, "rating", rating, ratingRule)
		}
	}

	if p.Filled("address_id") {
		id, ok := validation.Integer(errs, "address_id", p.String("address_id"))
		if ok {
			var count int64
			if id > 0 {
				if err := db.Model(&model.Address{}).Where("id = ?", id).Count(&count).Error; err != nil {
					return in, nil, err
				}
			}
			if count == 0 {
				errs.Add("address_id", "The selected address id is invalid.")
			}
			in.AddressID = uint(id)
		}
	} else {
		in.Address = addressInputFrom(p, "address")
		addressErrs := validation.Struct(in.Address)
		if in.Address.StateProvinceRegion == nil {
			addressErrs.Add("state_province_region", "The state province region field is required.")
		}
		if !addressErrs.Empty() {
			errs.Add("address", "Provide address.country, address.state_province_region and address.city or an address_id.")
			errs.Merge("address", addressErrs)
		}
	}

	validation.Images(errs, "images", in.Images)
	return in, errs, nil
}

type reviewPatch struct {
	CafeShopName utils.Optional[string]
	Rating       utils.Optional[int]
	Review       utils.Optional[string]
	Address      addressPatch
	KeepImageIDs utils.Optional[[]uint]
	Images       []*multipart.FileHeader
}

func reviewPatchFrom(db *gorm.DB, p *utils.Payload) (reviewPatch, validation.Errors, error) {
	errs := validation.Errors{}
	patch := reviewPatch{
		CafeShopName: p.Optional("cafe_shop_name"),
		Review:       p.Optional("review"),
		Address:      addressPatchFrom(p, "address"),
		Images:       p.Files("images"),
	}

	if patch.CafeShopName.Set {
		validation.Var(errs, "cafe_shop_name", strings.TrimSpace(patch.CafeShopName.Value), "required,max=255")
	}

	if p.Has("rating") && validation.Required(errs, "rating", p.String("rating")) {
		if rating, ok := validation.Integer(errs, "rating", p.String("rating")); ok {
			validation.Var(errs, "rating", rating, ratingRule)
			patch.Rating = utils.Some(rating)
		}
	}

	errs.Merge("address", patch.Address.validate())

	if p.Has("keep_image_ids") {
		kept, err := keepImageIDsFrom(db, p.Values("keep_image_ids"), errs)
		if err != nil {
			return patch, nil, err
		}
		patch.KeepImageIDs = utils.Some(kept)
	}

	validation.Images(errs, "images", patch.Images)
	return patch, errs, nil
}

// keepImageIDsFrom parses keep_image_ids. Errors are keyed by the position
// the value was sent at; blank entries are skipped.
func keepImageIDsFrom(db *gorm.DB, values []string, errs validation.Errors) ([]uint, error) {
	type keptID struct {
		pos int
		id  uint
	}
	var parsed []keptID
	for pos, raw := range values {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		field := fmt.Sprintf("keep_image_ids.%d", pos)
		id, ok := validation.Integer(errs, field, raw)
		if !ok {
			continue
		}
		if id <= 0 {
			errs.Add(field, fmt.Sprintf("The selected keep image ids.%d is invalid.", pos))
			continue
		}
		parsed = append(parsed, keptID{pos: pos, id: uint(id)})
	}

	ids := make([]uint, 0, len(parsed))
	for _, k := range parsed {
		ids = append(ids, k.id)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	var existing []uint
	if err := db.Model(&model.ReviewImage{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	found := make(map[uint]bool, len(existing))
	for _, id := range existing {
		found[id] = true
	}
	for _, k := range parsed {
		if !found[k.id] {
			errs.Add(fmt.Sprintf("keep_image_ids.%d", k.pos), fmt.Sprintf("The selected keep image ids.%d is invalid.", k.pos))
		}
	}
	return ids, nil
}

// columns returns the review columns the patch overwrites.
func (rp reviewPatch) columns() map[string]interface{} {
	updates := map[string]interface{}{}
	if rp.CafeShopName.Set {
		updates["cafe_shop_name"] = strings.TrimSpace(rp.CafeShopName.Value)
	}
	if rp.Rating.Set {
		updates["rating"] = rp.Rating.Value
	}
	if rp.Review.Set {
		updates["review"] = nullable(rp.Review.Value)
	}
	return updates
}

// attachImages stores each upload and records it against the review.
func attachImages(tx *gorm.DB, uploads *storage.Uploads, reviewID uint, files []*multipart.FileHeader) error {
	for _, file := range files {
		path, err := uploads.Put(storage.ReviewImages, file)
		if err != nil {
			return fmt.Errorf("store review image: %w", err)
		}
		image := model.ReviewImage{ReviewID: reviewID, Image: path}
		if err := tx.Create(&image).Error; err != nil {
			return err
		}
	}
	return nil
}

func withReviewAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Address").Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("review_images.id")
	})
}

func loadReview(ctx context.Context, id uint) (model.Review, error) {
	var review model.Review
	err := withReviewAssociations(database.DB.WithContext(ctx)).First(&review, id).Error
	return review, err
}

// findReview resolves :id or answers 404/500 itself.
func findReview(c *gin.Context) (*model.Review, bool) {
	id, ok := parseID(c, "Review")
	if !ok {
		return nil, false
	}

	review, err := loadReview(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Review not found")
		} else {
			utils.ServerErrorResponse(c, "fetch review", err)
		}
		return nil, false
	}
	return &review, true
}

func GetReviews(c *gin.Context) {
	var reviews []model.Review
	if err := withReviewAssociations(database.DB.WithContext(c.Request.Context())).
		Order("created_at DESC").Order("id DESC").
		Find(&reviews).Error; err != nil {
		utils.ServerErrorResponse(c, "list reviews", err)
		return
	}

	if len(reviews) == 0 {
		utils.NoRecordsResponse(c, "No records found")
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Reviews retrieved successfully", resource.NewReviews(reviews))
}

func GetReviewByID(c *gin.Context) {
	review, ok := findReview(c)
	if !ok {
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Review retrieved successfully", resource.NewReview(*review))
}

func CreateReview(c *gin.Context) {
	user := utils.CurrentUser(c)
	if user == nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized access")
		return
	}
	p, ok := readPayload(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	in, errs, err := reviewInputFrom(database.DB.WithContext(ctx), p)
	if err != nil {
		utils.ServerErrorResponse(c, "validate review", err)
		return
	}
	if !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	uploads := storage.Public.NewUploads()
	var review model.Review
	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		addressID := in.AddressID
		if addressID == 0 {
			address := in.Address.model()
			if err := tx.Create(&address).Error; err != nil {
				return err
			}
			addressID = address.ID
		}

		review = model.Review{
			UserID:       user.ID,
			AddressID:    addressID,
			CafeShopName: in.CafeShopName,
			Rating:       in.Rating,
			Review:       in.Review,
		}
		if err := tx.Omit(clause.Associations).Create(&review).Error; err != nil {
			return err
		}

		return attachImages(tx, uploads, review.ID, in.Images)
	})
	if err != nil {
		if discardErr := uploads.Discard(); discardErr != nil {
			utils.Log.WithError(discardErr).Warn("Failed to clean up review images after rollback")
		}
		utils.ServerErrorResponse(c, "create review", err)
		return
	}

	utils.ReviewsCreated.Inc()
	utils.ImagesStored.Add(float64(len(uploads.Paths())))
	utils.Log.WithFields(logrus.Fields{
		"review_id": review.ID,
		"user_id":   user.ID,
		"images":    len(uploads.Paths()),
	}).Info("review created")

	loaded, err := loadReview(ctx, review.ID)
	if err != nil {
		utils.ServerErrorResponse(c, "reload review", err)
		return
	}
	utils.JsonResponse(c, http.StatusCreated, "Review created successfully", resource.NewReview(loaded))
}

// UpdateReview patches the review and its address in place and reconciles
// images: when keep_image_ids is sent, every image not listed is removed.
func UpdateReview(c *gin.Context) {
	user := utils.CurrentUser(c)
	review, ok := findReview(c)
	if !ok {
		return
	}
	if user == nil || review.UserID != user.ID {
		utils.ErrorResponse(c, http.StatusForbidden, "You don't have permission to update this review")
		return
	}
	p, ok := readPayload(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	patch, errs, err := reviewPatchFrom(database.DB.WithContext(ctx), p)
	if err != nil {
		utils.ServerErrorResponse(c, "validate review", err)
		return
	}
	if !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	uploads := storage.Public.NewUploads()
	var removed []string
	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if patch.Address.any() {
			var address model.Address
			if err := tx.First(&address, review.AddressID).Error; err != nil {
				return err
			}
			if updates := patch.Address.apply(&address); len(updates) > 0 {
				if err := tx.Model(&address).Updates(updates).Error; err != nil {
					return err
				}
			}
		}

		if updates := patch.columns(); len(updates) > 0 {
			if err := tx.Model(&model.Review{ID: review.ID}).Updates(updates).Error; err != nil {
				return err
			}
		}

		if patch.KeepImageIDs.Set {
			query := tx.Where("review_id = ?", review.ID)
			if keep := patch.KeepImageIDs.Value; len(keep) > 0 {
				query = query.Where("id NOT IN ?", keep)
			}
			var stale []model.ReviewImage
			if err := query.Find(&stale).Error; err != nil {
				return err
			}
			if len(stale) > 0 {
				if err := tx.Delete(&stale).Error; err != nil {
					return err
				}
				for _, image := range stale {
					removed = append(removed, image.Image)
				}
			}
		}

		return attachImages(tx, uploads, review.ID, patch.Images)
	})
	if err != nil {
		if discardErr := uploads.Discard(); discardErr != nil {
			utils.Log.WithError(discardErr).Warn("Failed to clean up review images after rollback")
		}
		utils.ServerErrorResponse(c, "update review", err)
		return
	}

	removeStoredFiles(removed)
	utils.ImagesStored.Add(float64(len(uploads.Paths())))
	utils.Log.WithFields(logrus.Fields{
		"review_id":      review.ID,
		"images_added":   len(uploads.Paths()),
		"images_removed": len(removed),
	}).Info("review updated")

	loaded, err := loadReview(ctx, review.ID)
	if err != nil {
		utils.ServerErrorResponse(c, "reload review", err)
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Review updated successfully", resource.NewReview(loaded))
}

func DeleteReview(c *gin.Context) {
	user := utils.CurrentUser(c)
	review, ok := findReview(c)
	if !ok {
		return
	}
	if user == nil || review.UserID != user.ID {
		utils.ErrorResponse(c, http.StatusForbidden, "You don't have permission to delete this review")
		return
	}

	var paths []string
	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ReviewImage{}).Where("review_id = ?", review.ID).Pluck("image", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("review_id = ?", review.ID).Delete(&model.ReviewImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Review{}, review.ID).Error
	})
	if err != nil {
		utils.ServerErrorResponse(c, "delete review", err)
		return
	}

	removeStoredFiles(paths)

	utils.Log.WithField("review_id", review.ID).Info("review deleted")
	utils.JsonResponse(c, http.StatusOK, "Review deleted successfully", nil)
}
