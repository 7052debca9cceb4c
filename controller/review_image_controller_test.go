package controller_test

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"cafereview/model"
	"cafereview/resource"
	"cafereview/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewImageLifecycle(t *testing.T) {
	router, db, disk := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	address := testutil.CreateAddress(t, db)
	review := createReview(t, router, token, address.ID, 0)

	rec := testutil.Do(router, http.MethodGet, "/review-image", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No review images found", testutil.Decode(t, rec).Message)

	rec = testutil.DoMultipart(t, router, http.MethodPost, "/review-image", token,
		[]testutil.Field{{Name: "review_id", Value: strconv.Itoa(int(review.ID))}},
		[]testutil.File{{Field: "image", Filename: "cup.png", Content: testutil.PNG(t)}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created resource.ReviewImage
	testutil.DecodeData(t, rec, &created)
	assert.Equal(t, review.ID, created.ReviewID)

	var row model.ReviewImage
	require.NoError(t, db.First(&row, created.ID).Error)
	original := row.Image
	assert.True(t, disk.Exists(original))

	path := fmt.Sprintf("/review-image/%d", created.ID)
	rec = testutil.Do(router, http.MethodGet, path, token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoMultipart(t, router, http.MethodPut, path, token, nil,
		[]testutil.File{{Field: "image", Filename: "latte.jpg", Content: testutil.JPEG(t)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, db.First(&row, created.ID).Error)
	assert.NotEqual(t, original, row.Image)
	assert.True(t, disk.Exists(row.Image))
	assert.False(t, disk.Exists(original))

	rec = testutil.Do(router, http.MethodDelete, path, token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, disk.Exists(row.Image))
	assert.Equal(t, int64(0), countRows(t, db, &model.ReviewImage{}))

	rec = testutil.Do(router, http.MethodGet, path, token, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateReviewImageValidation(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")

	rec := testutil.DoMultipart(t, router, http.MethodPost, "/review-image", token,
		[]testutil.Field{{Name: "review_id", Value: "77"}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	errs := testutil.Decode(t, rec).Errors
	assert.Equal(t, []string{"The selected review id is invalid."}, errs["review_id"])
	assert.Equal(t, []string{"The image field is required."}, errs["image"])
}

func TestReviewImageOwnership(t *testing.T) {
	router, db, _ := testutil.Setup(t)
	_, ownerToken := testutil.CreateUser(t, db, "owner@example.com")
	_, otherToken := testutil.CreateUser(t, db, "other@example.com")
	address := testutil.CreateAddress(t, db)
	review := createReview(t, router, ownerToken, address.ID, 1)
	imageID := review.Images[0].ID

	rec := testutil.DoMultipart(t, router, http.MethodPost, "/review-image", otherToken,
		[]testutil.Field{{Name: "review_id", Value: strconv.Itoa(int(review.ID))}},
		[]testutil.File{{Field: "image", Filename: "cup.png", Content: testutil.PNG(t)}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.DoMultipart(t, router, http.MethodPut, fmt.Sprintf("/review-image/%d", imageID), otherToken, nil,
		[]testutil.File{{Field: "image", Filename: "cup.png", Content: testutil.PNG(t)}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = testutil.Do(router, http.MethodDelete, fmt.Sprintf("/review-image/%d", imageID), otherToken, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, int64(1), countRows(t, db, &model.ReviewImage{}))
}

func TestDeleteReviewImageToleratesMissingFile(t *testing.T) {
	router, db, disk := testutil.Setup(t)
	_, token := testutil.CreateUser(t, db, "owner@example.com")
	address := testutil.CreateAddress(t, db)
	review := createReview(t, router, token, address.ID, 1)

	paths := storedPaths(t, db, review.ID)
	require.NoError(t, disk.Delete(paths[0]))

	rec := testutil.Do(router, http.MethodDelete, fmt.Sprintf("/review-image/%d", review.Images[0].ID), token, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
