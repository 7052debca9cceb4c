package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"cafereview/database"
	"cafereview/model"
	"cafereview/utils"
	"cafereview/validation"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordCost is the bcrypt cost for new password hashes.
var PasswordCost = bcrypt.DefaultCost

const tokenType = "Bearer"

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// compareWithoutUser burns the same bcrypt work as a real comparison so an
// unknown email cannot be told apart from a wrong password by timing.
func compareWithoutUser(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("cafereview-dummy-password"), PasswordCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func readPayload(c *gin.Context) (*utils.Payload, bool) {
	p, err := utils.ReadPayload(c)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return p, true
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(c *gin.Context) {
	p, ok := readPayload(c)
	if !ok {
		return
	}

	req := loginRequest{
		Email:    strings.TrimSpace(p.String("email")),
		Password: p.String("password"),
	}
	if errs := validation.Struct(req); !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	var user model.User
	if err := database.DB.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ServerErrorResponse(c, "find user", err)
			return
		}
		compareWithoutUser(req.Password)
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		utils.ServerErrorResponse(c, "generate token", err)
		return
	}

	utils.Log.WithField("user_id", user.ID).Info("user logged in")
	utils.JsonResponse(c, http.StatusOK, "Login successful", gin.H{
		"token_type": tokenType,
		"token":      token,
	})
}

// Logout revokes the token the request was authenticated with.
func Logout(c *gin.Context) {
	claims := utils.CurrentClaims(c)
	if claims == nil || claims.ExpiresAt == nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	if err := utils.Denylist.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		utils.ServerErrorResponse(c, "revoke token", err)
		return
	}

	utils.Log.WithField("user_id", c.GetUint(utils.ContextUserID)).Info("user logged out")
	utils.JsonResponse(c, http.StatusOK, "Logged out successfully", nil)
}
