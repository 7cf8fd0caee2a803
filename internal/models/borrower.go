package models

import "time"

// Borrower is a library member who can submit borrow requests.
type Borrower struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:160;not null" json:"name"`
	Email      string    `gorm:"size:160;uniqueIndex" json:"email"`
	Phone      string    `gorm:"size:40" json:"phone"`
	Address    string    `gorm:"type:text" json:"address"`
	MemberNo   string    `gorm:"size:32;uniqueIndex" json:"member_no"`
	UserID     *uint     `gorm:"index" json:"user_id,omitempty"`
	JoinedDate time.Time `json:"joined_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// User is a dashboard account. Admins review requests and payments;
// member accounts are linked to a Borrower record.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:160;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
