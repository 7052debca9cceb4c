package controller

import (
	"fmt"
	"net/http"
	"time"

	"cafereview/database"
	"cafereview/model"
	"cafereview/utils"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet = "Reviews"
	xlsxMime    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []interface{}{
	"ID", "Cafe Shop Name", "Rating", "Review", "Country", "City", "Author", "Images", "Created At",
}

// ExportReviews streams every review as a single-sheet workbook.
func ExportReviews(c *gin.Context) {
	var reviews []model.Review
	if err := withReviewAssociations(database.DB.WithContext(c.Request.Context())).
		Order("created_at DESC").Order("id DESC").
		Find(&reviews).Error; err != nil {
		utils.ServerErrorResponse(c, "export reviews", err)
		return
	}

	xl, err := reviewWorkbook(reviews)
	if err != nil {
		utils.ServerErrorResponse(c, "build review workbook", err)
		return
	}
	defer xl.Close()

	buf, err := xl.WriteToBuffer()
	if err != nil {
		utils.ServerErrorResponse(c, "write review workbook", err)
		return
	}

	filename := fmt.Sprintf("reviews-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxMime, buf.Bytes())
}

func reviewWorkbook(reviews []model.Review) (*excelize.File, error) {
	xl := excelize.NewFile()
	if err := xl.SetSheetName("Sheet1", exportSheet); err != nil {
		xl.Close()
		return nil, err
	}

	if err := xl.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		xl.Close()
		return nil, err
	}

	for i, r := range reviews {
		text := ""
		if r.Review != nil {
			text = *r.Review
		}
		row := []interface{}{
			r.ID,
			r.CafeShopName,
			r.Rating,
			text,
			r.Address.Country,
			r.Address.City,
			r.User.Name,
			len(r.Images),
			r.CreatedAt.Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			xl.Close()
			return nil, err
		}
		if err := xl.SetSheetRow(exportSheet, cell, &row); err != nil {
			xl.Close()
			return nil, err
		}
	}
	return xl, nil
}
