package research

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the research schema using Gorm's AutoMigrate and logs progress.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "research.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying research schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Article{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("research schema migration failed")
		}
		return eris.Wrap(err, "auto migrating research schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("research schema migration complete")
	}

	return nil
}
