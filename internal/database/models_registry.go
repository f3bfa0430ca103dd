package database

import "pulse/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Profiles come first so that foreign keys from the interaction tables resolve.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Follow{},
		&models.Notification{},
		&models.Message{},
	}
}
