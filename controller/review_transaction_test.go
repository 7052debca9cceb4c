package controller_test

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"cafereview/model"
	"cafereview/storage"
	"cafereview/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// failImageInsertsAfter makes every review_images insert past the first n fail.
func failImageInsertsAfter(t *testing.T, db *gorm.DB, n int) {
	t.Helper()

	inserted := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("cafereview:fail_image_insert", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "review_images" {
			return
		}
		inserted++
		if inserted > n {
			tx.AddError(errors.New("disk quota exceeded"))
		}
	}))
}

// storedImageFiles lists the files under the review image directory.
func storedImageFiles(t *testing.T, disk *storage.Disk) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(disk.Root(), storage.ReviewImages))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, storage.ReviewImages+"/"+entry.Name())
	}
	return names
}

func TestCreateReviewRollsBackOnFailure(t *testing.T) {
	router, db, disk := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	failImageInsertsAfter(t, db, 1)

	rec := testutil.DoMultipart(t, router, http.MethodPost, "/review", token, reviewFields(
		testutil.Field{Name: "address[country]", Value: "Japan"},
		testutil.Field{Name: "address[state_province_region]", Value: "Tokyo"},
		testutil.Field{Name: "address[city]", Value: "Shibuya"},
	), imageFiles(t, 2))
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	assert.Equal(t, "Something went wrong", testutil.Decode(t, rec).Error)

	assert.Equal(t, int64(0), countRows(t, db, &model.Address{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.Review{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.ReviewImage{}))
	assert.Empty(t, storedImageFiles(t, disk), "files written before the failure are discarded")
}

func TestUpdateReviewRollsBackOnFailure(t *testing.T) {
	router, db, disk := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	address := testutil.CreateAddress(t, db)
	review := createReview(t, router, token, address.ID, 2)
	before := storedPaths(t, db, review.ID)
	require.Len(t, before, 2)
	failImageInsertsAfter(t, db, 1)

	rec := testutil.DoMultipart(t, router, http.MethodPut, fmt.Sprintf("/review/%d", review.ID), token,
		[]testutil.Field{
			{Name: "cafe_shop_name", Value: "Renamed"},
			{Name: "address[city]", Value: "Ottawa"},
			{Name: "keep_image_ids[]", Value: fmt.Sprint(review.Images[0].ID)},
		},
		imageFiles(t, 2))
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	var stored model.Review
	require.NoError(t, db.Preload("Address").First(&stored, review.ID).Error)
	assert.Equal(t, "Bean There", stored.CafeShopName)
	assert.Equal(t, "Toronto", stored.Address.City)

	assert.Equal(t, before, storedPaths(t, db, review.ID))
	for _, path := range before {
		assert.True(t, disk.Exists(path), "image %s survives the rollback", path)
	}
	assert.ElementsMatch(t, before, storedImageFiles(t, disk))
}

func TestDeleteReviewRemovesImagesAddedAfterLoad(t *testing.T) {
	router, db, disk := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	address := testutil.CreateAddress(t, db)
	review := createReview(t, router, token, address.ID, 1)

	late := storage.ReviewImages + "/late.png"
	require.NoError(t, os.WriteFile(filepath.Join(disk.Root(), filepath.FromSlash(late)), testutil.PNG(t), 0644))

	added := false
	require.NoError(t, db.Callback().Query().After("gorm:preload").Register("cafereview:late_image", func(tx *gorm.DB) {
		if added || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "reviews" {
			return
		}
		added = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO review_images (review_id, image) VALUES (?, ?)", review.ID, late); err != nil {
			tx.AddError(err)
		}
	}))

	rec := testutil.Do(router, http.MethodDelete, fmt.Sprintf("/review/%d", review.ID), token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, added)

	assert.Equal(t, int64(0), countRows(t, db, &model.ReviewImage{}))
	assert.False(t, disk.Exists(late))
	assert.Empty(t, storedImageFiles(t, disk))
}
