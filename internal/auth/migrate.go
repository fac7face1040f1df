package auth

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the auth schema using Gorm's AutoMigrate.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "auth.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying auth schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&User{}, &Session{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("auth schema migration failed")
		}
		return eris.Wrap(err, "auto migrating auth schema")
	}

	return nil
}
