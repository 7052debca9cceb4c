// Package resource shapes models into API responses, turning stored file
// paths into public URLs.
package resource

import (
	"time"

	"cafereview/model"
	"cafereview/storage"
)

type User struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ProfilePic *string   `json:"profile_pic"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ReviewImage struct {
	ID        uint      `json:"id"`
	ReviewID  uint      `json:"review_id"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Review struct {
	ID           uint          `json:"id"`
	CafeShopName string        `json:"cafe_shop_name"`
	Rating       int           `json:"rating"`
	Review       *string       `json:"review"`
	User         User          `json:"user"`
	Address      model.Address `json:"address"`
	Images       []ReviewImage `json:"images"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func url(path string) *string {
	if path == "" || storage.Public == nil {
		return nil
	}
	u := storage.Public.URL(path)
	return &u
}

func NewUser(u model.User) User {
	out := User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.ProfilePic != nil {
		out.ProfilePic = url(*u.ProfilePic)
	}
	return out
}

func NewReviewImage(img model.ReviewImage) ReviewImage {
	return ReviewImage{
		ID:        img.ID,
		ReviewID:  img.ReviewID,
		Image:     url(img.Image),
		CreatedAt: img.CreatedAt,
		UpdatedAt: img.UpdatedAt,
	}
}

func NewReviewImages(images []model.ReviewImage) []ReviewImage {
	out := make([]ReviewImage, 0, len(images))
	for _, img := range images {
		out = append(out, NewReviewImage(img))
	}
	return out
}

func NewReview(r model.Review) Review {
	return Review{
		ID:           r.ID,
		CafeShopName: r.CafeShopName,
		Rating:       r.Rating,
		Review:       r.Review,
		User:         NewUser(r.User),
		Address:      r.Address,
		Images:       NewReviewImages(r.Images),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func NewReviews(reviews []model.Review) []Review {
	out := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, NewReview(r))
	}
	return out
}
