// Package dbschema checks a live database against the GORM models after migration.
package dbschema

import (
	"fmt"
	"sort"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"gorm.io/gorm"
)

// ValidationResult is the outcome for one model table
type ValidationResult struct {
	TableName string
	Valid     bool
	Errors    []string
	Warnings  []string
}

// ValidateSchema verifies that every model has its table and columns.
// Columns present in the database but unknown to the model are reported as warnings.
func ValidateSchema(db *gorm.DB, models ...any) ([]ValidationResult, error) {
	logger := slogging.Get()
	logger.Debug("Starting database schema validation")

	migrator := db.Migrator()
	results := make([]ValidationResult, 0, len(models))
	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table
		logger.Debug("Validating table: %s", table)

		result := ValidationResult{TableName: table, Valid: true}
		if !migrator.HasTable(model) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Table '%s' does not exist", table))
			results = append(results, result)
			continue
		}

		expected := make(map[string]bool)
		for _, field := range stmt.Schema.Fields {
			if field.DBName == "" {
				continue
			}
			expected[field.DBName] = true
			if !migrator.HasColumn(model, field.DBName) {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Column '%s.%s' does not exist", table, field.DBName))
			}
		}

		columns, err := migrator.ColumnTypes(model)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
		}
		var extra []string
		for _, col := range columns {
			if !expected[col.Name()] {
				extra = append(extra, col.Name())
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Column '%s.%s' is not mapped by the model", table, name))
		}

		results = append(results, result)
	}
	return results, nil
}

// LogValidationResults logs each result and returns the number of errors found
func LogValidationResults(results []ValidationResult) int {
	logger := slogging.Get()
	errorCount := 0
	for _, r := range results {
		for _, w := range r.Warnings {
			logger.Warn("Schema warning: %s", w)
		}
		if r.Valid {
			logger.Info("Table %s: OK", r.TableName)
			continue
		}
		for _, e := range r.Errors {
			logger.Error("Schema error: %s", e)
		}
		errorCount += len(r.Errors)
	}
	return errorCount
}
