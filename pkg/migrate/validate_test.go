package migrate_test

import (
	"testing"

	"github.com/ecochamp/ecochamp-backend/pkg/migrate"
)

func TestValidateDirAcceptsCheckedInMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected valid migrations dir: %v", err)
	}
}
