package domain

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	UserID string
	Role   Role
}
