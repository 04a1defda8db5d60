package model

// UserStatus represents user status
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// UserPlan represents the subscription plan a user is on.
// The plan decides how many custom domains the user may attach.
type UserPlan string

const (
	UserPlanFree     UserPlan = "free"
	UserPlanPro      UserPlan = "pro"
	UserPlanBusiness UserPlan = "business"
)

// User represents a user in the system
type User struct {
	BaseModel
	Username     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         string     `gorm:"type:varchar(32);default:'user'" json:"role"`
	Plan         UserPlan   `gorm:"type:varchar(16);default:'free'" json:"plan"`
	Status       UserStatus `gorm:"type:varchar(16);default:'active'" json:"status"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
