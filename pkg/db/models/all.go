package models

// All lists every persisted model in dependency order. Used by test
// harnesses that build schemas with AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Address{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
