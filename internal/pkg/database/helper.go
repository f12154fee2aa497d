package database

import "gorm.io/gorm"

// MaxPageSize bounds Limit
const MaxPageSize = 100

// Limit caps a listing to n rows, clamped to [1, MaxPageSize]
func Limit(n int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(ClampLimit(n))
	}
}

// ClampLimit clamps n to [1, MaxPageSize]; zero or negative means MaxPageSize
func ClampLimit(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// OrderBy adds ordering to a query
func OrderBy(field string, desc bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if desc {
			return db.Order(field + " DESC")
		}
		return db.Order(field)
	}
}

// OwnedBy scopes a query to a user
func OwnedBy(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}
