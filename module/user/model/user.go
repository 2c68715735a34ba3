package model

// User is the persisted account record. The gateway only reads it; account
// CRUD belongs to the surrounding application.
type User struct {
	ID          int64  `bson:"_id" json:"id"`
	Username    string `bson:"username" json:"username"`
	IsActive    bool   `bson:"is_active" json:"is_active"`
	IsSuperuser bool   `bson:"is_superuser" json:"is_superuser"`
}
