package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account. Email is stored lower-cased; OTP and OTPExpiry are
// always set and cleared together.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email" json:"email"`
	Password   string `bson:"password" json:"-"` // bcrypt hash, never returned
	IsVerified bool   `bson:"isVerified" json:"isVerified"`
	Avatar     string `bson:"avatar,omitempty" json:"avatar,omitempty"`

	OTP       *string    `bson:"otp,omitempty" json:"-"`
	OTPExpiry *time.Time `bson:"otpExpiry,omitempty" json:"-"`
}

// IssueOTP replaces any pending code with code, valid until now+ttl.
func (u *User) IssueOTP(code string, now time.Time, ttl time.Duration) {
	expiry := now.Add(ttl)
	u.OTP = &code
	u.OTPExpiry = &expiry
}

// ClearOTP drops the pending code.
func (u *User) ClearOTP() {
	u.OTP = nil
	u.OTPExpiry = nil
}

// OTPExpired reports whether the pending code is past its expiry at now.
// A user without a pending code counts as expired.
func (u *User) OTPExpired(now time.Time) bool {
	if u.OTPExpiry == nil {
		return true
	}
	return now.After(*u.OTPExpiry)
}

// Profile is the public view of a user.
type Profile struct {
	ID         primitive.ObjectID `json:"_id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Avatar     string             `json:"avatar"`
	IsVerified bool               `json:"isVerified"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Avatar:     u.Avatar,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
