package database

import "techatlas/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Hub{},
		&models.Community{},
		&models.Startup{},
		&models.Job{},
		&models.Gig{},
		&models.Event{},
		&models.Opportunity{},
		&models.LearningResource{},
		&models.BlogPost{},
		&models.ForumThread{},
		&models.ForumReply{},
	}
}
