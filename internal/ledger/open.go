package ledger

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/config"
)

// Open builds the Ledger selected by cfg.Driver.
func Open(ctx context.Context, cfg config.LedgerConfig) (Ledger, error) {
	switch cfg.Driver {
	case "sheets", "":
		return NewSheets(ctx, SheetsConfig{
			SpreadsheetID:       cfg.SpreadsheetID,
			SheetName:           cfg.SheetName,
			CredentialsFile:     cfg.CredentialsFile,
			ServiceAccountEmail: cfg.ServiceAccountEmail,
			PrivateKey:          cfg.PrivateKey,
			BaseURL:             cfg.BaseURL,
		})
	case "sqlite":
		return NewSQLite(ctx, cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("ledger: unknown driver %q", cfg.Driver)
	}
}

// LinkOf returns the browsable location of l, or "" when it has none.
func LinkOf(l Ledger) string {
	if loc, ok := l.(Locator); ok {
		return loc.URL()
	}
	return ""
}
