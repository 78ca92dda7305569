package library

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the library schema using Gorm's AutoMigrate and logs progress.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "library.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying library schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Book{}, &Page{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("library schema migration failed")
		}
		return eris.Wrap(err, "auto migrating library schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("library schema migration complete")
	}

	return nil
}
