package controller

import (
	"net/http"
	"path/filepath"
	"strings"

	"cafereview/database"
	"cafereview/model"
	"cafereview/utils"
	"cafereview/validation"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// Spreadsheet columns: country, state_province_region, city, description.
const (
	colCountry = iota
	colStateProvinceRegion
	colCity
	colDescription
)

type skippedRow struct {
	Row    int               `json:"row"`
	Errors validation.Errors `json:"errors"`
}

// ImportAddresses bulk-creates addresses from the first sheet of an .xlsx
// upload. The header row is skipped; invalid rows are reported, not fatal.
func ImportAddresses(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.ValidationErrorResponse(c, validation.Errors{"file": {"The file field is required."}})
		return
	}
	if strings.ToLower(filepath.Ext(fileHeader.Filename)) != ".xlsx" {
		utils.ValidationErrorResponse(c, validation.Errors{"file": {"The file field must be a file of type: xlsx."}})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.ServerErrorResponse(c, "open address spreadsheet", err)
		return
	}
	defer file.Close()

	xl, err := excelize.OpenReader(file)
	if err != nil {
		utils.ValidationErrorResponse(c, validation.Errors{"file": {"The file field must be a valid spreadsheet."}})
		return
	}
	defer xl.Close()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		utils.ValidationErrorResponse(c, validation.Errors{"file": {"The spreadsheet has no sheets."}})
		return
	}
	rows, err := xl.GetRows(sheets[0])
	if err != nil || len(rows) < 2 {
		utils.ValidationErrorResponse(c, validation.Errors{"file": {"The spreadsheet must have at least one row of data."}})
		return
	}

	var addresses []model.Address
	skipped := []skippedRow{}
	for i, row := range rows[1:] {
		rowNumber := i + 2
		cell := func(col int) string {
			if col < len(row) {
				return row[col]
			}
			return ""
		}

		in := addressInput{
			Country:             strings.TrimSpace(cell(colCountry)),
			StateProvinceRegion: nullable(cell(colStateProvinceRegion)),
			City:                strings.TrimSpace(cell(colCity)),
			Description:         nullable(cell(colDescription)),
		}
		if errs := validation.Struct(in); !errs.Empty() {
			skipped = append(skipped, skippedRow{Row: rowNumber, Errors: errs})
			continue
		}
		addresses = append(addresses, in.model())
	}

	if len(addresses) == 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": "No valid rows found",
			"skipped": skipped,
		})
		return
	}

	if err := database.DB.WithContext(c.Request.Context()).Create(&addresses).Error; err != nil {
		utils.ServerErrorResponse(c, "import addresses", err)
		return
	}

	utils.Log.WithField("count", len(addresses)).WithField("skipped", len(skipped)).Info("addresses imported")
	utils.JsonResponse(c, http.StatusCreated, "Addresses imported successfully", gin.H{
		"count":   len(addresses),
		"skipped": skipped,
	})
}
