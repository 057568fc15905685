package dao

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Campaign{},
		&Donation{},
	)
}

// isUniqueViolation reports whether err is a unique violation on a constraint
// whose name contains constraint. Drivers that translate errors report
// gorm.ErrDuplicatedKey without a constraint name.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation &&
			(strings.Contains(pgErr.ConstraintName, constraint) || strings.Contains(pgErr.Message, constraint))
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
