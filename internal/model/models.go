package model

// All returns every model that needs a table, in migration order.
func All() []any {
	return []any{
		&Video{},
		&UploadSession{},
		&Like{},
		&Follow{},
		&Block{},
		&Campaign{},
		&AdImpression{},
		&Notification{},
	}
}
