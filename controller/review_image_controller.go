package controller

import (
	"errors"
	"net/http"

	"cafereview/database"
	"cafereview/model"
	"cafereview/resource"
	"cafereview/storage"
	"cafereview/utils"
	"cafereview/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func GetReviewImages(c *gin.Context) {
	var images []model.ReviewImage
	if err := database.DB.WithContext(c.Request.Context()).Order("id").Find(&images).Error; err != nil {
		utils.ServerErrorResponse(c, "list review images", err)
		return
	}

	if len(images) == 0 {
		utils.NoRecordsResponse(c, "No review images found")
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Review images retrieved successfully", resource.NewReviewImages(images))
}

func findReviewImage(c *gin.Context) (*model.ReviewImage, bool) {
	id, ok := parseID(c, "Review image")
	if !ok {
		return nil, false
	}

	var image model.ReviewImage
	if err := database.DB.WithContext(c.Request.Context()).First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Review image not found")
		} else {
			utils.ServerErrorResponse(c, "fetch review image", err)
		}
		return nil, false
	}
	return &image, true
}

// ownsReview answers 403 unless the current user wrote the review.
func ownsReview(c *gin.Context, reviewID uint, action string) bool {
	user := utils.CurrentUser(c)

	var review model.Review
	if err := database.DB.WithContext(c.Request.Context()).Select("id", "user_id").First(&review, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Review not found")
		} else {
			utils.ServerErrorResponse(c, "fetch review", err)
		}
		return false
	}
	if user == nil || review.UserID != user.ID {
		utils.ErrorResponse(c, http.StatusForbidden, "You don't have permission to "+action+" this review image")
		return false
	}
	return true
}

func GetReviewImageByID(c *gin.Context) {
	image, ok := findReviewImage(c)
	if !ok {
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Review image retrieved successfully", resource.NewReviewImage(*image))
}

func CreateReviewImage(c *gin.Context) {
	p, ok := readPayload(c)
	if !ok {
		return
	}

	errs := validation.Errors{}
	var reviewID uint
	if validation.Required(errs, "review_id", p.String("review_id")) {
		if id, ok := validation.Integer(errs, "review_id", p.String("review_id")); ok {
			var count int64
			if id > 0 {
				if err := database.DB.WithContext(c.Request.Context()).Model(&model.Review{}).Where("id = ?", id).Count(&count).Error; err != nil {
					utils.ServerErrorResponse(c, "validate review image", err)
					return
				}
			}
			if count == 0 {
				errs.Add("review_id", "The selected review id is invalid.")
			}
			reviewID = uint(id)
		}
	}

	file := p.File("image")
	if file == nil {
		errs.Add("image", "The image field is required.")
	} else {
		validation.Image(errs, "image", file)
	}

	if !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}
	if !ownsReview(c, reviewID, "create") {
		return
	}

	path, err := storage.Public.Put(storage.ReviewImages, file)
	if err != nil {
		utils.ServerErrorResponse(c, "store review image", err)
		return
	}

	image := model.ReviewImage{ReviewID: reviewID, Image: path}
	if err := database.DB.WithContext(c.Request.Context()).Create(&image).Error; err != nil {
		removeStoredFiles([]string{path})
		utils.ServerErrorResponse(c, "create review image", err)
		return
	}

	utils.ImagesStored.Inc()
	utils.Log.WithFields(logrus.Fields{"review_image_id": image.ID, "review_id": reviewID}).Info("review image created")
	utils.JsonResponse(c, http.StatusCreated, "Review image created successfully", resource.NewReviewImage(image))
}

// UpdateReviewImage swaps the stored file when a new image is sent. The old
// file is only removed once the row points at the new one.
func UpdateReviewImage(c *gin.Context) {
	image, ok := findReviewImage(c)
	if !ok {
		return
	}
	if !ownsReview(c, image.ReviewID, "update") {
		return
	}
	p, ok := readPayload(c)
	if !ok {
		return
	}

	file := p.File("image")
	if file == nil {
		if p.Has("image") {
			utils.ValidationErrorResponse(c, validation.Errors{"image": {"The image field must be a file."}})
			return
		}
		utils.JsonResponse(c, http.StatusOK, "Review image updated successfully", resource.NewReviewImage(*image))
		return
	}

	errs := validation.Errors{}
	validation.Image(errs, "image", file)
	if !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	path, err := storage.Public.Put(storage.ReviewImages, file)
	if err != nil {
		utils.ServerErrorResponse(c, "store review image", err)
		return
	}

	old := image.Image
	if err := database.DB.WithContext(c.Request.Context()).Model(image).Update("image", path).Error; err != nil {
		removeStoredFiles([]string{path})
		utils.ServerErrorResponse(c, "update review image", err)
		return
	}

	image.Image = path
	utils.ImagesStored.Inc()
	removeStoredFiles([]string{old})
	utils.JsonResponse(c, http.StatusOK, "Review image updated successfully", resource.NewReviewImage(*image))
}

func DeleteReviewImage(c *gin.Context) {
	image, ok := findReviewImage(c)
	if !ok {
		return
	}
	if !ownsReview(c, image.ReviewID, "delete") {
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Delete(image).Error; err != nil {
		utils.ServerErrorResponse(c, "delete review image", err)
		return
	}

	removeStoredFiles([]string{image.Image})
	utils.Log.WithField("review_image_id", image.ID).Info("review image deleted")
	utils.JsonResponse(c, http.StatusOK, "Review image deleted successfully", nil)
}
