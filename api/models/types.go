package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Dialect constants for database type detection
const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// Point is one vertex of a freehand stroke
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointArray stores an ordered polyline as a JSON array
type PointArray []Point

// GormDBDataType implements the GormDBDataTypeInterface to return
// dialect-specific column types for cross-database compatibility
func (PointArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Name() {
	case dialectPostgres:
		return "JSONB"
	case dialectSQLite:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// Value implements the driver.Valuer interface for database writes.
// An empty polyline is stored as NULL.
func (a PointArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return nil, nil
	}
	bytes, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface for database reads
func (a *PointArray) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan PointArray: unexpected type %T", value)
	}

	if len(bytes) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(bytes, a)
}
