// Package testutil boots the API against an in-memory sqlite database and a
// temporary storage directory for package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"cafereview/auth"
	"cafereview/config"
	"cafereview/database"
	"cafereview/model"
	"cafereview/route"
	"cafereview/storage"
	"cafereview/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	TestSecret   = "test-secret"
	TestPassword = "password123"
	TestBaseURL  = "http://cafe.test"
)

// SetupDatabase opens a private in-memory database and publishes it as database.DB.
func SetupDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.ErrorLevel)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := database.Open("sqlite", dsn, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	previous := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = previous
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SetupStorage points storage.Public at a temporary directory.
func SetupStorage(t *testing.T) *storage.Disk {
	t.Helper()

	disk := storage.NewDisk(t.TempDir(), TestBaseURL)
	previous := storage.Public
	storage.Public = disk
	t.Cleanup(func() { storage.Public = previous })
	return disk
}

// Setup prepares database, storage and token state and returns the router.
func Setup(t *testing.T) (*gin.Engine, *gorm.DB, *storage.Disk) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	utils.Log.SetOutput(io.Discard)

	db := SetupDatabase(t)
	disk := SetupStorage(t)

	utils.Denylist = utils.NewMemoryDenylist()
	utils.ConfigureTokens(TestSecret, time.Hour)
	auth.PasswordCost = bcrypt.MinCost

	router := route.SetupRouter(&config.Config{AllowedOrigins: "http://localhost:3000"})
	return router, db, disk
}

// CreateUser inserts a user with TestPassword and returns it with a fresh token.
func CreateUser(t *testing.T, db *gorm.DB, email string) (model.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{Name: "Test User", Email: email, Password: string(hashed)}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func CreateAddress(t *testing.T, db *gorm.DB) model.Address {
	t.Helper()

	state := "Ontario"
	address := model.Address{Country: "Canada", StateProvinceRegion: &state, City: "Toronto"}
	require.NoError(t, db.Create(&address).Error)
	return address
}

// PNG returns the bytes of a tiny valid PNG image.
func PNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// JPEG returns the bytes of a tiny valid JPEG image.
func JPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// File is one part of a multipart request.
type File struct {
	Field    string
	Filename string
	Content  []byte
}

// Field is one value of a multipart request; order is preserved.
type Field struct {
	Name  string
	Value string
}

// Multipart encodes fields and files as multipart/form-data.
func Multipart(t *testing.T, fields []Field, files []File) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range fields {
		require.NoError(t, writer.WriteField(f.Name, f.Value))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.Field+`"; filename="`+f.Filename+`"`)
		header.Set("Content-Type", "application/octet-stream")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

// Do sends a request through router. A non-empty token is sent as a bearer token.
func Do(router http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// DoJSON marshals payload and sends it as application/json.
func DoJSON(t *testing.T, router http.Handler, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return Do(router, method, path, token, body, "application/json")
}

// DoMultipart sends fields and files as multipart/form-data.
func DoMultipart(t *testing.T, router http.Handler, method, path, token string, fields []Field, files []File) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := Multipart(t, fields, files)
	return Do(router, method, path, token, body, contentType)
}

// Envelope is the decoded response body.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
	Data    json.RawMessage     `json:"data"`
}

func Decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// DecodeData unmarshals the data member of the response into out.
func DecodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	env := Decode(t, rec)
	require.NotEmpty(t, env.Data, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}
