package controller_test

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"cafereview/model"
	"cafereview/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCreateAddress(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")

	rec := testutil.DoJSON(t, router, http.MethodPost, "/address", token, map[string]interface{}{
		"country": "Kenya",
		"city":    "Nairobi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var address model.Address
	testutil.DecodeData(t, rec, &address)
	assert.NotZero(t, address.ID)
	assert.Equal(t, "Kenya", address.Country)
	assert.Equal(t, "Nairobi", address.City)
	assert.Nil(t, address.StateProvinceRegion)
	assert.Nil(t, address.Description)
}

func TestCreateAddressValidation(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")

	rec := testutil.DoMultipart(t, router, http.MethodPost, "/address", token,
		[]testutil.Field{{Name: "state_province_region", Value: "Rift Valley"}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env := testutil.Decode(t, rec)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Equal(t, []string{"The country field is required."}, env.Errors["country"])
	assert.Equal(t, []string{"The city field is required."}, env.Errors["city"])
	assert.Equal(t, int64(0), countRows(t, db, &model.Address{}))
}

func TestUpdateAddressPartial(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	address := testutil.CreateAddress(t, db)
	path := fmt.Sprintf("/address/%d", address.ID)

	rec := testutil.DoJSON(t, router, http.MethodPut, path, token, map[string]interface{}{
		"city":        "Hamilton",
		"description": "Near the lake",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored model.Address
	require.NoError(t, db.First(&stored, address.ID).Error)
	assert.Equal(t, "Canada", stored.Country)
	assert.Equal(t, "Hamilton", stored.City)
	require.NotNil(t, stored.StateProvinceRegion)
	assert.Equal(t, "Ontario", *stored.StateProvinceRegion)
	require.NotNil(t, stored.Description)
	assert.Equal(t, "Near the lake", *stored.Description)

	rec = testutil.DoJSON(t, router, http.MethodPatch, path, token, map[string]interface{}{
		"state_province_region": "",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, db.First(&stored, address.ID).Error)
	assert.Nil(t, stored.StateProvinceRegion)

	rec = testutil.DoJSON(t, router, http.MethodPut, path, token, map[string]interface{}{"country": " "})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, testutil.Decode(t, rec).Errors, "country")
}

func TestGetAddresses(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")

	rec := testutil.Do(router, http.MethodGet, "/address", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := testutil.Decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "No records found", env.Message)
	assert.Empty(t, env.Data)

	address := testutil.CreateAddress(t, db)

	rec = testutil.Do(router, http.MethodGet, "/address", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var addresses []model.Address
	testutil.DecodeData(t, rec, &addresses)
	require.Len(t, addresses, 1)
	assert.Equal(t, address.ID, addresses[0].ID)

	rec = testutil.Do(router, http.MethodGet, "/address/424242", token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Address not found", testutil.Decode(t, rec).Error)
}

func TestDeleteAddressCascadesToReviews(t *testing.T) {
	router, db, disk := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	address := testutil.CreateAddress(t, db)
	review := createReview(t, router, token, address.ID, 1)
	paths := storedPaths(t, db, review.ID)
	require.Len(t, paths, 1)

	rec := testutil.Do(router, http.MethodDelete, fmt.Sprintf("/address/%d", address.ID), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, int64(0), countRows(t, db, &model.Address{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.Review{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.ReviewImage{}))
	assert.False(t, disk.Exists(paths[0]))
}

func addressWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	xl := excelize.NewFile()
	defer xl.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, xl.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := xl.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImportAddresses(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")

	content := addressWorkbook(t, [][]interface{}{
		{"country", "state_province_region", "city", "description"},
		{"Italy", "Lazio", "Rome", "Old town"},
		{"", "", "Nowhere", ""},
		{"Spain", "", "Madrid"},
	})

	rec := testutil.DoMultipart(t, router, http.MethodPost, "/address/import", token, nil,
		[]testutil.File{{Field: "file", Filename: "addresses.xlsx", Content: content}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		Count   int `json:"count"`
		Skipped []struct {
			Row    int                 `json:"row"`
			Errors map[string][]string `json:"errors"`
		} `json:"skipped"`
	}
	testutil.DecodeData(t, rec, &result)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 3, result.Skipped[0].Row)
	assert.Contains(t, result.Skipped[0].Errors, "country")

	var addresses []model.Address
	require.NoError(t, db.Order("id").Find(&addresses).Error)
	require.Len(t, addresses, 2)
	assert.Equal(t, "Rome", addresses[0].City)
	assert.Equal(t, "Madrid", addresses[1].City)
	assert.Nil(t, addresses[1].StateProvinceRegion)
}

func TestImportAddressesRejectsBadFiles(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")

	tests := []struct {
		name  string
		files []testutil.File
	}{
		{"missing file", nil},
		{"wrong extension", []testutil.File{{Field: "file", Filename: "addresses.csv", Content: []byte("a,b,c")}}},
		{"corrupt workbook", []testutil.File{{Field: "file", Filename: "addresses.xlsx", Content: []byte("not a zip")}}},
		{"header only", []testutil.File{{Field: "file", Filename: "addresses.xlsx", Content: addressWorkbook(t, [][]interface{}{
			{"country", "state_province_region", "city", "description"},
		})}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.DoMultipart(t, router, http.MethodPost, "/address/import", token,
				[]testutil.Field{{Name: "note", Value: "import"}}, tt.files)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, int64(0), countRows(t, db, &model.Address{}))
}

func TestExportReviews(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	address := testutil.CreateAddress(t, db)
	review := createReview(t, router, token, address.ID, 2)

	rec := testutil.Do(router, http.MethodGet, "/review/export", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	xl, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows("Reviews")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cafe Shop Name", rows[0][1])
	assert.Equal(t, strconv.Itoa(int(review.ID)), rows[1][0])
	assert.Equal(t, "Bean There", rows[1][1])
	assert.Equal(t, "Toronto", rows[1][5])
	assert.Equal(t, "2", rows[1][7])
}
