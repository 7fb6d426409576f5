package models

// ModelsToAutoMigrate returns every model in migration order.
func ModelsToAutoMigrate() []interface{} {
	return []interface{}{
		&StoreConnection{}, // Must be first - mappings and logs reference it
		&CategoryMapping{},
		&MigrationLog{},
	}
}
