package models

import "gorm.io/gorm"

// Migrate creates or updates the catalog schema. Order follows foreign key
// dependencies.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Ruleset{},
		&RuleGroup{},
		&Rule{},
		&BaselineField{},
		&AuditLog{},
	)
}
