package controller

import (
	"errors"
	"net/http"
	"strings"

	"cafereview/database"
	"cafereview/model"
	"cafereview/utils"
	"cafereview/validation"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type addressInput struct {
	Country             string  `json:"country" validate:"required,max=255"`
	StateProvinceRegion *string `json:"state_province_region" validate:"omitempty,max=255"`
	City                string  `json:"city" validate:"required,max=255"`
	Description         *string `json:"description"`
}

// addressInputFrom reads address fields, nested under prefix when it is not empty.
func addressInputFrom(p *utils.Payload, prefix string) addressInput {
	key := nestedKey(prefix)
	return addressInput{
		Country:             strings.TrimSpace(p.String(key("country"))),
		StateProvinceRegion: nullable(p.String(key("state_province_region"))),
		City:                strings.TrimSpace(p.String(key("city"))),
		Description:         nullable(p.String(key("description"))),
	}
}

func (in addressInput) model() model.Address {
	return model.Address{
		Country:             in.Country,
		StateProvinceRegion: in.StateProvinceRegion,
		City:                in.City,
		Description:         in.Description,
	}
}

type addressPatch struct {
	Country             utils.Optional[string]
	StateProvinceRegion utils.Optional[string]
	City                utils.Optional[string]
	Description         utils.Optional[string]
}

func addressPatchFrom(p *utils.Payload, prefix string) addressPatch {
	key := nestedKey(prefix)
	return addressPatch{
		Country:             p.Optional(key("country")),
		StateProvinceRegion: p.Optional(key("state_province_region")),
		City:                p.Optional(key("city")),
		Description:         p.Optional(key("description")),
	}
}

func (ap addressPatch) any() bool {
	return ap.Country.Set || ap.StateProvinceRegion.Set || ap.City.Set || ap.Description.Set
}

func (ap addressPatch) validate() validation.Errors {
	errs := validation.Errors{}
	if ap.Country.Set {
		validation.Var(errs, "country", strings.TrimSpace(ap.Country.Value), "required,max=255")
	}
	if ap.StateProvinceRegion.Set {
		validation.Var(errs, "state_province_region", strings.TrimSpace(ap.StateProvinceRegion.Value), "omitempty,max=255")
	}
	if ap.City.Set {
		validation.Var(errs, "city", strings.TrimSpace(ap.City.Value), "required,max=255")
	}
	return errs
}

// apply copies the supplied fields onto address and returns the changed columns.
func (ap addressPatch) apply(address *model.Address) map[string]interface{} {
	updates := map[string]interface{}{}
	if ap.Country.Set {
		address.Country = strings.TrimSpace(ap.Country.Value)
		updates["country"] = address.Country
	}
	if ap.StateProvinceRegion.Set {
		address.StateProvinceRegion = nullable(ap.StateProvinceRegion.Value)
		updates["state_province_region"] = address.StateProvinceRegion
	}
	if ap.City.Set {
		address.City = strings.TrimSpace(ap.City.Value)
		updates["city"] = address.City
	}
	if ap.Description.Set {
		address.Description = nullable(ap.Description.Value)
		updates["description"] = address.Description
	}
	return updates
}

func nestedKey(prefix string) func(string) string {
	return func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
}

func GetAddresses(c *gin.Context) {
	var addresses []model.Address
	if err := database.DB.WithContext(c.Request.Context()).Order("id").Find(&addresses).Error; err != nil {
		utils.ServerErrorResponse(c, "list addresses", err)
		return
	}

	if len(addresses) == 0 {
		utils.NoRecordsResponse(c, "No records found")
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Addresses retrieved successfully", addresses)
}

func CreateAddress(c *gin.Context) {
	p, ok := readPayload(c)
	if !ok {
		return
	}

	in := addressInputFrom(p, "")
	if errs := validation.Struct(in); !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	address := in.model()
	if err := database.DB.WithContext(c.Request.Context()).Create(&address).Error; err != nil {
		utils.ServerErrorResponse(c, "create address", err)
		return
	}

	utils.Log.WithField("address_id", address.ID).Info("address created")
	utils.JsonResponse(c, http.StatusCreated, "Address created successfully", address)
}

func findAddress(c *gin.Context) (*model.Address, bool) {
	id, ok := parseID(c, "Address")
	if !ok {
		return nil, false
	}

	var address model.Address
	if err := database.DB.WithContext(c.Request.Context()).First(&address, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Address not found")
		} else {
			utils.ServerErrorResponse(c, "fetch address", err)
		}
		return nil, false
	}
	return &address, true
}

func GetAddressByID(c *gin.Context) {
	address, ok := findAddress(c)
	if !ok {
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Address retrieved successfully", address)
}

func UpdateAddress(c *gin.Context) {
	address, ok := findAddress(c)
	if !ok {
		return
	}
	p, ok := readPayload(c)
	if !ok {
		return
	}

	patch := addressPatchFrom(p, "")
	if errs := patch.validate(); !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	if updates := patch.apply(address); len(updates) > 0 {
		if err := database.DB.WithContext(c.Request.Context()).Model(address).Updates(updates).Error; err != nil {
			utils.ServerErrorResponse(c, "update address", err)
			return
		}
	}

	utils.JsonResponse(c, http.StatusOK, "Address updated successfully", address)
}

// DeleteAddress removes the address together with the reviews that point at
// it. Their image files are removed once the transaction has committed.
func DeleteAddress(c *gin.Context) {
	address, ok := findAddress(c)
	if !ok {
		return
	}

	var imagePaths []string
	err := database.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ReviewImage{}).
			Joins("JOIN reviews ON reviews.id = review_images.review_id").
			Where("reviews.address_id = ?", address.ID).
			Pluck("review_images.image", &imagePaths).Error; err != nil {
			return err
		}
		reviews := tx.Model(&model.Review{}).Select("id").Where("address_id = ?", address.ID)
		if err := tx.Where("review_id IN (?)", reviews).Delete(&model.ReviewImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("address_id = ?", address.ID).Delete(&model.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(address).Error
	})
	if err != nil {
		utils.ServerErrorResponse(c, "delete address", err)
		return
	}

	removeStoredFiles(imagePaths)
	utils.Log.WithFields(logrus.Fields{
		"address_id": address.ID,
		"images":     len(imagePaths),
	}).Info("address deleted")
	utils.JsonResponse(c, http.StatusOK, "Address deleted successfully", nil)
}
