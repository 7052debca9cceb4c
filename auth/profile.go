package auth

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"cafereview/database"
	"cafereview/model"
	"cafereview/resource"
	"cafereview/storage"
	"cafereview/utils"
	"cafereview/validation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// emailTaken reports whether another user already uses email.
func emailTaken(db *gorm.DB, email string, exceptID uint) (bool, error) {
	var count int64
	query := db.Model(&model.User{}).Where("email = ?", email)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

const emailTakenMessage = "The email has already been taken."

// emailConflict answers 422 when a write lost a race on the unique email index.
func emailConflict(c *gin.Context, err error) bool {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false
	}
	utils.ValidationErrorResponse(c, validation.Errors{"email": {emailTakenMessage}})
	return true
}

func profilePicFrom(p *utils.Payload, errs validation.Errors) *multipart.FileHeader {
	file := p.File("profile_pic")
	if file != nil {
		validation.Image(errs, "profile_pic", file)
	}
	return file
}

func Register(c *gin.Context) {
	p, ok := readPayload(c)
	if !ok {
		return
	}
	db := database.DB.WithContext(c.Request.Context())

	req := registerRequest{
		Name:     strings.TrimSpace(p.String("name")),
		Email:    strings.TrimSpace(p.String("email")),
		Password: p.String("password"),
	}
	errs := validation.Struct(req)
	if !errs.Has("email") {
		taken, err := emailTaken(db, req.Email, 0)
		if err != nil {
			utils.ServerErrorResponse(c, "check email", err)
			return
		}
		if taken {
			errs.Add("email", emailTakenMessage)
		}
	}
	avatar := profilePicFrom(p, errs)
	if !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		utils.ServerErrorResponse(c, "hash password", err)
		return
	}

	user := model.User{Name: req.Name, Email: req.Email, Password: hashed}
	if avatar != nil {
		path, err := storage.Public.Put(storage.ProfilePics, avatar)
		if err != nil {
			utils.ServerErrorResponse(c, "store profile picture", err)
			return
		}
		user.ProfilePic = &path
	}

	if err := db.Create(&user).Error; err != nil {
		if user.ProfilePic != nil {
			if delErr := storage.Public.Delete(*user.ProfilePic); delErr != nil {
				utils.Log.WithError(delErr).Warn("Failed to remove profile picture after failed registration")
			}
		}
		if emailConflict(c, err) {
			return
		}
		utils.ServerErrorResponse(c, "create user", err)
		return
	}

	token, err := utils.GenerateToken(user.ID)
	if err != nil {
		utils.ServerErrorResponse(c, "generate token", err)
		return
	}

	utils.Log.WithField("user_id", user.ID).Info("user registered")
	utils.JsonResponse(c, http.StatusCreated, "User registered successfully", gin.H{
		"user":       resource.NewUser(user),
		"token":      token,
		"token_type": tokenType,
	})
}

func Profile(c *gin.Context) {
	user := utils.CurrentUser(c)
	if user == nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized access")
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Profile retrieved successfully", resource.NewUser(*user))
}

// EditProfile applies the non-blank fields sent. A new profile picture
// replaces the stored one, which is deleted once the user row is saved.
func EditProfile(c *gin.Context) {
	user := utils.CurrentUser(c)
	if user == nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized access")
		return
	}
	p, ok := readPayload(c)
	if !ok {
		return
	}
	db := database.DB.WithContext(c.Request.Context())

	errs := validation.Errors{}
	name := strings.TrimSpace(p.String("name"))
	if name != "" {
		validation.Var(errs, "name", name, "max=255")
	}
	email := strings.TrimSpace(p.String("email"))
	if email != "" {
		validation.Var(errs, "email", email, "email,max=255")
		if !errs.Has("email") {
			taken, err := emailTaken(db, email, user.ID)
			if err != nil {
				utils.ServerErrorResponse(c, "check email", err)
				return
			}
			if taken {
				errs.Add("email", emailTakenMessage)
			}
		}
	}
	password := p.String("password")
	if password != "" {
		validation.Var(errs, "password", password, "min=8")
	}
	avatar := profilePicFrom(p, errs)
	if !errs.Empty() {
		utils.ValidationErrorResponse(c, errs)
		return
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if email != "" {
		updates["email"] = email
	}
	if password != "" {
		hashed, err := hashPassword(password)
		if err != nil {
			utils.ServerErrorResponse(c, "hash password", err)
			return
		}
		updates["password"] = hashed
	}

	var oldPic, newPic string
	if avatar != nil {
		path, err := storage.Public.Put(storage.ProfilePics, avatar)
		if err != nil {
			utils.ServerErrorResponse(c, "store profile picture", err)
			return
		}
		newPic = path
		if user.ProfilePic != nil {
			oldPic = *user.ProfilePic
		}
		updates["profile_pic"] = newPic
	}

	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			if newPic != "" {
				if delErr := storage.Public.Delete(newPic); delErr != nil {
					utils.Log.WithError(delErr).Warn("Failed to remove profile picture after failed update")
				}
			}
			if emailConflict(c, err) {
				return
			}
			utils.ServerErrorResponse(c, "update profile", err)
			return
		}
	}

	if oldPic != "" {
		if err := storage.Public.Delete(oldPic); err != nil {
			utils.Log.WithError(err).WithField("path", oldPic).Warn("Failed to delete old profile picture")
		}
	}

	var fresh model.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		utils.ServerErrorResponse(c, "reload user", err)
		return
	}
	utils.JsonResponse(c, http.StatusOK, "Profile updated successfully", resource.NewUser(fresh))
}
