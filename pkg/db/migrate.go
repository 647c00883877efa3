package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaTemplate string

var ErrInvalidDimension = errors.New("embedding dimension must be positive")

// Schema renders the vector schema for the given embedding dimension.
func Schema(dimension int) ([]string, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	rendered := strings.ReplaceAll(schemaTemplate, "{{DIMENSION}}", fmt.Sprint(dimension))

	var statements []string
	for _, stmt := range strings.Split(rendered, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			statements = append(statements, s)
		}
	}
	return statements, nil
}

// Migrate creates the vector tables if they do not exist.
func (db *DB) Migrate(ctx context.Context, dimension int) error {
	statements, err := Schema(dimension)
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration statement: %w", err)
		}
	}
	return nil
}
