package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// User is a registered customer. Accounts are managed elsewhere; this
// service only reads them and credits loyalty units.
type User struct {
	Base
	Email          string   `db:"email"`
	FullName       string   `db:"full_name"`
	Role           UserRole `db:"role"`
	IsActive       bool     `db:"is_active"`
	LoyaltyCredits int64    `db:"loyalty_credits"`
}
