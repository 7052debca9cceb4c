package controller_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cafereview/controller"
	"cafereview/database"
	"cafereview/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func mockDatabase(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = previous
		sqlDB.Close()
	})
	return mock
}

func TestDatabaseFailureIsGeneric500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	utils.Log.SetOutput(io.Discard)
	mock := mockDatabase(t)

	mock.ExpectQuery(`SELECT \* FROM "addresses"`).WillReturnError(errors.New("connection reset by peer"))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/address", nil)

	controller.GetAddresses(c)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Something went wrong", body["error"])
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAddressRollsBackOnFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	utils.Log.SetOutput(io.Discard)
	mock := mockDatabase(t)

	mock.ExpectQuery(`SELECT \* FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "country", "city"}).AddRow(3, "Chile", "Santiago"))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "review_images"\."image" FROM "review_images" JOIN reviews`).
		WillReturnRows(sqlmock.NewRows([]string{"image"}))
	mock.ExpectExec(`DELETE FROM "review_images"`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/address/3", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}

	controller.DeleteAddress(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
