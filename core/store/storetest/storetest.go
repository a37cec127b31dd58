// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"context"
	"testing"

	"bom-manager/core/database"
	"bom-manager/core/scheme"
	"bom-manager/core/store"

	"github.com/stretchr/testify/require"
)

// New returns a migrated in-memory store using the default scheme.
func New(t testing.TB) *store.Store {
	return NewWithScheme(t, scheme.Default())
}

// NewWithScheme returns a migrated in-memory store using sch.
func NewWithScheme(t testing.TB, sch *scheme.Scheme) *store.Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s := store.New(db, sch)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}
